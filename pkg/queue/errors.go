package queue

import "github.com/pkg/errors"

var (
	ErrWorkMustBeSet   = errors.New("work must be set")
	ErrOutputMustBeSet = errors.New("output path must be set")
)
