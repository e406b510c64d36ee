package repository

import "time"

// Default connection settings.
const (
	DefaultDatabase       = "tcc"
	DefaultInsertTimeout  = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxPoolSize    = 50
)

// Option applies a configuration option to the MongoStore.
type Option func(*MongoStore)

// WithDatabase sets the database every collection is resolved in.
func WithDatabase(name string) Option {
	return func(s *MongoStore) {
		if name != "" {
			s.dbName = name
		}
	}
}

// WithInsertTimeout bounds each insert round-trip.
func WithInsertTimeout(d time.Duration) Option {
	return func(s *MongoStore) {
		if d > 0 {
			s.insertTimeout = d
		}
	}
}

// WithConnectTimeout bounds connect and the startup ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *MongoStore) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithMaxPoolSize caps the driver connection pool.
func WithMaxPoolSize(n uint64) Option {
	return func(s *MongoStore) {
		if n > 0 {
			s.maxPoolSize = n
		}
	}
}
