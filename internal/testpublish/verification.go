package testpublish

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/topicsink/internal/domain/collection"
	"github.com/okian/topicsink/pkg/logger"
)

// Counter reports how many documents a collection holds.
type Counter interface {
	CountDocuments(ctx context.Context, collection string) (int64, error)
}

// snapshotCounts reads the current count of every topic's collection.
func snapshotCounts(ctx context.Context, counter Counter, namer *collection.Namer, topics []string) (map[string]int64, error) {
	out := make(map[string]int64, len(topics))
	for _, topic := range topics {
		name, err := namer.Resolve(topic)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", topic, err)
		}
		n, err := counter.CountDocuments(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("count %q: %w", name, err)
		}
		out[topic] = n
	}
	return out, nil
}

// verifyCounts compares the growth of each topic's collection with the
// number of payloads published to it.
func verifyCounts(ctx context.Context, counter Counter, namer *collection.Namer, before, expected map[string]int64, stats *Stats) error {
	logger.Get().Info(ctx, "verifying stored documents")

	topics := make([]string, 0, len(expected))
	for topic := range expected {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	after, err := snapshotCounts(ctx, counter, namer, topics)
	if err != nil {
		return err
	}

	for _, topic := range topics {
		got := after[topic] - before[topic]
		want := expected[topic]
		if got == want {
			stats.Verified++
			logger.Get().Info(ctx, "topic verified",
				logger.String("topic", topic),
				logger.Int64("documents", got))
			continue
		}
		stats.Mismatched++
		logger.Get().Warn(ctx, "topic count mismatch",
			logger.String("topic", topic),
			logger.Int64("expected", want),
			logger.Int64("stored", got))
	}

	if stats.Mismatched > 0 {
		return fmt.Errorf("%d of %d topics did not match", stats.Mismatched, len(topics))
	}
	return nil
}
