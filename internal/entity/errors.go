package entity

import "errors"

// Domain errors
var (
	// Upload errors
	ErrNoFile           = errors.New("no file provided")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Chat errors
	ErrNoMessage = errors.New("no message provided")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
