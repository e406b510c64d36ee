package broker

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/topicsink/pkg/logger"
)

// Option applies a configuration option to the Subscriber.
type Option func(*Subscriber)

// WithBroker sets the broker URL, e.g. "tcp://localhost:1883".
func WithBroker(url string) Option {
	return func(s *Subscriber) {
		if url != "" {
			s.brokerURL = url
		}
	}
}

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) Option {
	return func(s *Subscriber) {
		if id != "" {
			s.clientID = id
		}
	}
}

// WithCredentials sets the username and password.
func WithCredentials(username, password string) Option {
	return func(s *Subscriber) {
		s.username = username
		s.password = password
	}
}

// WithTopics sets the subscription filters. Blank filters are ignored.
func WithTopics(filters ...string) Option {
	return func(s *Subscriber) {
		var kept []string
		for _, f := range filters {
			if f = strings.TrimSpace(f); f != "" {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			s.topics = kept
		}
	}
}

// WithQoS sets the subscription quality of service.
func WithQoS(qos byte) Option {
	return func(s *Subscriber) {
		if qos <= 2 {
			s.qos = qos
		}
	}
}

// WithConnectTimeout bounds connect and subscribe round-trips.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Subscriber) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClientFactory replaces the paho client constructor.
func WithClientFactory(f func(*mqtt.ClientOptions) mqtt.Client) Option {
	return func(s *Subscriber) {
		if f != nil {
			s.newClient = f
		}
	}
}
