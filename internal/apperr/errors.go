package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrOutOfRange    = errors.New("index out of range")
	ErrUnknownField  = errors.New("unknown annotation field")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnsupported   = errors.New("unsupported operation")
)
