package config

import "errors"

var (
	ErrUnknownDriver  = errors.New("unknown storage driver")
	ErrInvalidRetries = errors.New("move max-retries must be at least 1")
)
