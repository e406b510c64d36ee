package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrConfigurationMissing marks a config without a store URI. It is a
	// warning: the process keeps running with the sink inactive.
	ErrConfigurationMissing = errors.New("mongodb_uri not configured; sink inactive")
)
