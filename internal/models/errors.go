package models

import "errors"

var (
	ErrInvalidToken       = errors.New("models: invalid token")
	ErrForbidden          = errors.New("models: not a chat participant")
	ErrNotFound           = errors.New("models: no matching record found")
	ErrInvalidOperation   = errors.New("models: invalid operation")
	ErrMalformedPayload   = errors.New("models: malformed payload")
	ErrDuplicateEmail     = errors.New("models: duplicate email")
	ErrInvalidCredentials = errors.New("models: invalid credentials")
)
