package registry

import "github.com/pkg/errors"

var (
	ErrDuplicatePlugin = errors.New("plugin already registered")
	ErrUnknownPlugin   = errors.New("unknown plugin")
	ErrNoPlugin        = errors.New("no plugin registered")
)
