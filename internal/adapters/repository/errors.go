package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInsertFailed = errors.New("insert failed")
	ErrNotConnected = errors.New("store not connected")
	ErrConnect      = errors.New("store connect failed")
)
