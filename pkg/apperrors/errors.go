package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrUnsupportedEngine      = errors.New("unsupported engine family")
	ErrSamplingTimeout        = errors.New("sampling timeout")
	ErrCredentialsKeyMismatch = errors.New("datasource credentials were encrypted with a different key")
)
