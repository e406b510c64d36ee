package testpublish

import (
	"time"

	"github.com/okian/topicsink/internal/domain/types"
)

// Config holds configuration for a publish run
type Config struct {
	BrokerURL     string        // MQTT broker URL
	BaseURL       string        // Base URL of the sink's HTTP surface
	MongoURI      string        // Store URI used for verification; empty skips it
	MongoDatabase string        // Database the sink writes to
	TopicPrefix   string        // Prefix for generated topics
	NumMessages   int           // Number of payloads to publish
	Rate          float64       // Publishes per second; 0 means unlimited
	Workers       int           // Number of concurrent publishers
	QoS           byte          // Publish quality of service
	Timeout       time.Duration // Per-request timeout
	SettleDelay   time.Duration // Wait between publishing and verification
	OutputFile    string        // Output file for payloads
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Payload is one message to publish together with the kind the sink should store.
type Payload struct {
	Topic    string     `json:"topic"`
	Body     string     `json:"payload"`
	Expected types.Kind `json:"-"`
	KindName string     `json:"expected_kind"`
}

// Stats holds run statistics
type Stats struct {
	Generated  int
	Published  int
	Failed     int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
