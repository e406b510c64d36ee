package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrSinkInactive = errors.New("sink inactive")
	ErrNotStarted   = errors.New("service not started")
	ErrDropped      = errors.New("message dropped")
)
