package storage

import "errors"

const (
	// MaxContentSize caps a single clip's text
	MaxContentSize = 10 * 1024 * 1024 // 10MB

	DefaultListLimit = 200
)

// Storage errors
var (
	ErrNotFound        = errors.New("clip not found")
	ErrEmptyContent    = errors.New("clip content is empty")
	ErrContentTooLarge = errors.New("clip content exceeds maximum allowed size")
)
