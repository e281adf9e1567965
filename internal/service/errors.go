package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrVoterNotFound      = errors.New("voter not found")
	ErrAlreadyDecided     = errors.New("verification already decided")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("too many failed login attempts, try again later")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidInput       = errors.New("invalid input")
)

// FieldErrors maps a request field to its validation messages. It is returned as the
// 400 body unchanged.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e FieldErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
