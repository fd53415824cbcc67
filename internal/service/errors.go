package service

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleStatus means the issue changed between read and conditional write.
	ErrStaleStatus = errors.New("issue status changed concurrently")
)
