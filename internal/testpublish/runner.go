package testpublish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/topicsink/internal/adapters/repository"
	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/pkg/logger"
)

// Runner drives one publish run. Nil fields are built from the Config.
type Runner struct {
	HTTPClient *http.Client
	Publisher  Publisher
	Counter    Counter
}

// Run executes the complete publish run with default dependencies.
func Run(ctx context.Context, config *Config) error {
	return (&Runner{}).Run(ctx, config)
}

// Run executes the complete publish run.
func (r *Runner) Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting topicsink publish run",
		logger.String("broker", config.BrokerURL),
		logger.String("baseURL", config.BaseURL),
		logger.String("prefix", config.TopicPrefix),
		logger.Int("messages", config.NumMessages),
		logger.Int("workers", config.Workers),
		logger.Float64("rate", config.Rate),
		logger.Bool("verify", config.MongoURI != ""))

	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	// Step 1: Check service health
	if config.BaseURL != "" {
		if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
			return fmt.Errorf("service health check failed: %w", err)
		}
	}

	// Step 2: Generate payloads
	payloads, err := generatePayloads(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("payload generation failed: %w", err)
	}
	expected := expectedCounts(payloads)

	// Step 3: Baseline counts, so earlier runs do not skew verification
	counter, closeCounter, err := r.counter(ctx, config)
	if err != nil {
		return fmt.Errorf("store connection failed: %w", err)
	}
	defer closeCounter()

	namer := collection.NewNamer(config.MongoDatabase, collection.PolicySanitize)
	var before map[string]int64
	if counter != nil {
		topics := make([]string, 0, len(expected))
		for topic := range expected {
			topics = append(topics, topic)
		}
		if before, err = snapshotCounts(ctx, counter, namer, topics); err != nil {
			return fmt.Errorf("baseline count failed: %w", err)
		}
	}

	// Step 4: Publish
	pub := r.Publisher
	if pub == nil {
		p, err := newPahoPublisher(config)
		if err != nil {
			return fmt.Errorf("broker connection failed: %w", err)
		}
		pub = p
	}
	defer pub.Close()

	if err := publishPayloads(ctx, config, pub, payloads, stats); err != nil {
		return fmt.Errorf("publishing failed: %w", err)
	}

	// Step 5: Wait for the sink to drain, then verify
	if counter != nil {
		logger.Get().Info(ctx, "waiting for messages to be stored", logger.Duration("delay", config.SettleDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.SettleDelay):
		}
		if err := verifyCounts(ctx, counter, namer, before, expected, stats); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	if config.BaseURL != "" && config.Verbose {
		if sinkStats, err := fetchStats(ctx, client, config.BaseURL); err != nil {
			logger.Get().Warn(ctx, "failed to fetch sink stats", logger.Error(err))
		} else {
			logger.Get().Info(ctx, "sink stats", logger.Any("stats", sinkStats))
		}
	}

	// Step 6: Save payloads to file
	if _, err := savePayloadsToFile(ctx, config.OutputFile, payloads); err != nil {
		logger.Get().Warn(ctx, "failed to save payloads to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "publish run completed successfully")
	return nil
}

// counter returns the injected Counter or connects to config.MongoURI.
// Both results are nil when verification is disabled.
func (r *Runner) counter(ctx context.Context, config *Config) (Counter, func(), error) {
	if r.Counter != nil {
		return r.Counter, func() {}, nil
	}
	if config.MongoURI == "" {
		return nil, func() {}, nil
	}

	store, err := repository.Connect(ctx, config.MongoURI,
		repository.WithDatabase(config.MongoDatabase),
		repository.WithConnectTimeout(config.Timeout))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Get().Error(context.Background(), "failed to close store", logger.Error(err))
		}
	}, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64

	if attempted := stats.Published + stats.Failed; attempted > 0 {
		successRate = float64(stats.Published) / float64(attempted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Published) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("published", stats.Published),
		logger.Int("failed", stats.Failed),
		logger.Int("topicsVerified", stats.Verified),
		logger.Int("topicsMismatched", stats.Mismatched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("messagesPerSecond", perSecond))
}
