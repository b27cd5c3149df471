package model

import "github.com/pkg/errors"

var (
	ErrUnknownOption  = errors.New("unknown configuration option")
	ErrInvalidFactory = errors.New("invalid plugin factory")
)
