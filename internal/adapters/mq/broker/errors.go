package broker

import "errors"

// Sentinel kinds for broker errors.
var (
	ErrConnect        = errors.New("broker connect failed")
	ErrSubscribe      = errors.New("broker subscribe failed")
	ErrTimeout        = errors.New("broker operation timed out")
	ErrNoDispatcher   = errors.New("no dispatcher configured")
	ErrAlreadyStarted = errors.New("subscriber already started")
)
