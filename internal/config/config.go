// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading accepts context.Context as the first parameter.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/topicsink/internal/domain/collection"
)

// Collection-name policies.
const (
	CollectionPolicySanitize = string(collection.PolicySanitize)
	CollectionPolicyReject   = string(collection.PolicyReject)
)

// Numeric overflow policies.
const (
	OverflowPolicySaturate = "saturate"
	OverflowPolicyText     = "text"
)

const maxQoS = 2

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP ops listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MongoURI is the store connection string. Empty leaves the sink inactive.
	MongoURI string `koanf:"mongodb_uri"`

	// MongoDatabase is the database every topic collection lives in.
	MongoDatabase string `koanf:"mongodb_database"`

	// MongoTimeoutMS bounds a single insert round-trip.
	MongoTimeoutMS int `koanf:"mongodb_timeout_ms"`

	// MongoConnectTimeoutMS bounds connect and the startup ping.
	MongoConnectTimeoutMS int `koanf:"mongodb_connect_timeout_ms"`

	// MongoMaxPoolSize caps the driver connection pool.
	MongoMaxPoolSize int `koanf:"mongodb_max_pool_size"`

	// MQTTBroker is the broker URL, e.g. "tcp://localhost:1883".
	MQTTBroker string `koanf:"mqtt_broker"`

	// MQTTClientID is the client identifier; empty generates one.
	MQTTClientID string `koanf:"mqtt_client_id"`

	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"` //nolint:gosec // config field, not a credential

	// MQTTTopics are the subscription filters.
	MQTTTopics []string `koanf:"mqtt_topics"`

	// MQTTQoS is the subscription quality of service (0..2).
	MQTTQoS int `koanf:"mqtt_qos"`

	// CollectionPolicy decides what happens to topics that are not valid collection names.
	CollectionPolicy string `koanf:"collection_policy"`

	// OverflowPolicy decides how out-of-range numeric payloads are classified.
	OverflowPolicy string `koanf:"overflow_policy"`

	// QueueSize bounds the dispatch queue between the broker and the workers.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of dispatch workers.
	WorkerCount int `koanf:"worker_count"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		MongoURI:              "",
		MongoDatabase:         "tcc",
		MongoTimeoutMS:        5000,
		MongoConnectTimeoutMS: 10000,
		MongoMaxPoolSize:      50,
		MQTTBroker:            "tcp://localhost:1883",
		MQTTTopics:            []string{"#"},
		MQTTQoS:               0,
		CollectionPolicy:      CollectionPolicySanitize,
		OverflowPolicy:        OverflowPolicySaturate,
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
	}
}

// SinkEnabled reports whether a store URI was supplied.
func (c *Config) SinkEnabled() bool {
	return strings.TrimSpace(c.MongoURI) != ""
}

// InsertTimeout returns the per-insert timeout.
func (c *Config) InsertTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

// ConnectTimeout returns the store connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.MongoConnectTimeoutMS) * time.Millisecond
}

// Validate checks the loaded values and normalizes collection_policy.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MQTTQoS < 0 || c.MQTTQoS > maxQoS:
		return fmt.Errorf("%w: mqtt_qos must be 0, 1 or 2, got %d", ErrInvalidConfig, c.MQTTQoS)
	case len(c.MQTTTopics) == 0:
		return fmt.Errorf("%w: mqtt_topics must not be empty", ErrInvalidConfig)
	case c.SinkEnabled() && strings.TrimSpace(c.MongoDatabase) == "":
		return fmt.Errorf("%w: mongodb_database must not be empty", ErrInvalidConfig)
	}

	policy, err := collection.ParsePolicy(c.CollectionPolicy)
	if err != nil {
		return fmt.Errorf("%w: collection_policy: %w", ErrInvalidConfig, err)
	}
	c.CollectionPolicy = string(policy)

	switch c.OverflowPolicy {
	case OverflowPolicySaturate, OverflowPolicyText:
	default:
		return fmt.Errorf("%w: unknown overflow_policy %q", ErrInvalidConfig, c.OverflowPolicy)
	}

	for _, t := range c.MQTTTopics {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: mqtt_topics contains an empty filter", ErrInvalidConfig)
		}
	}
	return nil
}
