package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")
)

// Stable names for the error kinds, used in API bodies and queue replies.
const (
	CodeInvalidInput = "invalid_input"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeTemporary    = "temporary"
	CodeInternal     = "internal"
)

var errorCodes = []struct {
	kind error
	code string
}{
	{ErrInvalidInput, CodeInvalidInput},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotFound, CodeNotFound},
	{ErrTemporary, CodeTemporary},
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorCode names the kind carried by err, or CodeInternal.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorFromCode rebuilds a typed error from a code produced by ErrorCode.
// Unknown codes and CodeInternal keep err untyped.
func ErrorFromCode(code, operation string, err error) error {
	for _, c := range errorCodes {
		if c.code == code {
			return WrapError(c.kind, operation, err)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}
