package api

import "errors"

// ErrServe wraps a listener failure of the ops HTTP server.
var ErrServe = errors.New("ops http server failed")
