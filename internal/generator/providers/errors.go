package providers

import "errors"

var (
	// ErrUninitialized is returned when generating before a successful Initialize.
	ErrUninitialized = errors.New("provider not initialized")
	// ErrEmptyCredential is returned by Initialize for a blank API key.
	ErrEmptyCredential = errors.New("API key is required")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("provider returned empty response")
)
