package domain

import "github.com/pkg/errors"

var (
	ErrNoData      = errors.New("no data")
	ErrDuplicate   = errors.New("duplicate")
	ErrExpired     = errors.New("expired")
	ErrInvalidData = errors.New("invalid data")
	ErrForbidden   = errors.New("forbidden")

	ErrCacheMiss           = errors.New("cache miss")
	ErrInvalidCode         = errors.New("invalid custom code")
	ErrInvalidURL          = errors.New("invalid url")
	ErrCodeConflict        = errors.New("short code conflict")
	ErrGenerationExhausted = errors.New("short code generation exhausted")
)
