package items

import "github.com/pkg/errors"

var (
	ErrNotRegularFile  = errors.New("path is not an existing regular file")
	ErrMixedDirectory  = errors.New("path does not share the list common directory")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrEmptyList       = errors.New("list has no common directory")
	ErrScopeActive     = errors.New("another working directory scope is already active")
)
