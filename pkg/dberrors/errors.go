package dberrors

import "errors"

var (
	ErrNotFound        = errors.New("limedb: not found")
	ErrClosed          = errors.New("limedb: closed")
	ErrInvalidArgument = errors.New("limedb: invalid argument")
)
