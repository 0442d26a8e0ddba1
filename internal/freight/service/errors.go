package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrNotFound             = errors.New("not_found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrMFARequired          = errors.New("mfa_required")
	ErrForbidden            = errors.New("forbidden")
	ErrAccountDisabled      = errors.New("account_disabled")
	ErrConflict             = errors.New("conflict")
	ErrQuoteExpired         = errors.New("quote_expired")
	ErrRateLimited          = errors.New("rate_limited")
	ErrInvalidOrExpiredCode = errors.New("invalid_or_expired_code")
	ErrWrongCurrentPassword = errors.New("wrong_current_password")
)

// ValidationError reports caller input that failed validation, one message
// per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}
	slices.Sort(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// validator accumulates field errors.
type validator struct {
	fields map[string]string
}

func (v *validator) check(ok bool, field, msg string) {
	if ok {
		return
	}
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *validator) required(value, field string) {
	v.check(strings.TrimSpace(value) != "", field, "is required")
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
