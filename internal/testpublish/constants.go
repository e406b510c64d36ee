package testpublish

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Defaults for the publish tool.
const (
	DefaultBrokerURL   = "tcp://localhost:1883"
	DefaultBaseURL     = "http://localhost:9080"
	DefaultDatabase    = "tcc"
	DefaultTopicPrefix = "topicsink/load"
	DefaultMessages    = 1000
	DefaultTimeout     = 30 * time.Second
	DefaultSettleDelay = 5 * time.Second
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	disconnectQuiesceMS     = 250
)
