package domain

import "errors"

// Error taxonomy (sentinels). Adapters wrap these with operation context so
// callers can branch with errors.Is while logs keep the full chain.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrIO              = errors.New("io error")
	ErrSerialization   = errors.New("serialization failed")
	ErrDeserialization = errors.New("deserialization failed")
	ErrSandbox         = errors.New("sandbox failure")
	ErrInternal        = errors.New("internal error")
)
