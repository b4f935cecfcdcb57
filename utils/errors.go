package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes callers branch on.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation covers missing or malformed input. No side effects happened.
	KindValidation
	// KindDownstreamStorage covers any failure reported by the storage provider.
	KindDownstreamStorage
	// KindNetwork covers client-side transport failures and non-success responses.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDownstreamStorage:
		return "downstream_storage"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// AppError carries a kind plus a human readable detail.
type AppError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Detail != "" {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError reports invalid input.
func NewValidationError(detail string) *AppError {
	return &AppError{Kind: KindValidation, Detail: detail}
}

// NewStorageError wraps a provider failure during op.
func NewStorageError(op string, err error) *AppError {
	return &AppError{Kind: KindDownstreamStorage, Detail: op, Err: err}
}

// NewNetworkError reports a failed or rejected HTTP exchange.
func NewNetworkError(detail string, err error) *AppError {
	return &AppError{Kind: KindNetwork, Detail: detail, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}
