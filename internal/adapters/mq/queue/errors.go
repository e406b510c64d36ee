package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)

// Drop reasons used as metric labels.
const (
	DropReasonFull      = "queue_full"
	DropReasonClosed    = "closed"
	DropReasonCancelled = "context_cancelled"
)
