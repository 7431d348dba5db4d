package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid job input")
	ErrMalformedPlan     = errors.New("malformed plan")
	ErrProviderFailure   = errors.New("provider failure")
	ErrInvalidTransition = errors.New("invalid status transition")
)
