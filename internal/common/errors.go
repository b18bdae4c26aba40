// Package common defines shared constants and sentinel errors used across
// the server, the client and the seeder. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrValidation         = errors.New("validation error")
	ErrorUnauthorized     = errors.New("could not validate credentials")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token errors. ErrTokenExpired is reported separately so the caller can
	// tell the user to log in again.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Detection pipeline errors.
	ErrEmptyUpload             = errors.New("empty upload")
	ErrDecode                  = errors.New("could not decode image")
	ErrInference               = errors.New("inference failed")
	ErrUnrecognizedModelOutput = errors.New("unrecognized model output")
	ErrNoObjectDetected        = errors.New("no object detected")
	ErrMetadataMissing         = errors.New("no data found for detected class")

	// ErrTooManyRequests is returned by the HTTP rate limiter.
	ErrTooManyRequests = errors.New("too many requests")
)
