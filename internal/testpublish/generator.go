package testpublish

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/okian/topicsink/internal/domain/classifier"
	"github.com/okian/topicsink/internal/domain/types"
	"github.com/okian/topicsink/pkg/logger"
)

// Constants for random payload generation.
const (
	payloadShapeDivisor = 4
	integerSpan         = 1 << 31
	floatScale          = 1000
	floatSpan           = 2_000_000
	wordIndexDivisor    = 8
)

// Payload shapes.
const (
	shapeInteger = 0
	shapeFloat   = 1
	shapeText    = 2
	shapeEdge    = 3
)

var words = [wordIndexDivisor]string{
	"on", "off", "open", "closed", "alarm", "idle", "temp-ok", "v2",
}

// edgePayloads are published at least once per run so every boundary of the
// classifier reaches the store.
var edgePayloads = []string{
	"",
	"3.",
	"+3.14",
	"-42",
	"007",
	".5",
	"1e5",
	"12 ",
	"2147483648",
	"-2147483649",
	"Hello, world",
}

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// generatePayloads creates config.NumMessages payloads. The edge cases come
// first so small runs still cover them.
func generatePayloads(ctx context.Context, config *Config, stats *Stats) ([]Payload, error) {
	logger.Get().Info(ctx, "generating payloads", logger.Int("numMessages", config.NumMessages))

	payloads := make([]Payload, 0, config.NumMessages)
	for i := 0; i < config.NumMessages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during payload generation: %w", err)
		}

		var body string
		if i < len(edgePayloads) {
			body = edgePayloads[i]
		} else {
			body = generateBody()
		}
		payloads = append(payloads, newPayload(config.TopicPrefix, body))
	}

	stats.Generated = len(payloads)
	logger.Get().Info(ctx, "generated payloads successfully", logger.Int("count", len(payloads)))
	return payloads, nil
}

// newPayload classifies body and routes it to "<prefix>/<kind>".
func newPayload(prefix, body string) Payload {
	kind := classifier.Classify(body).Kind
	return Payload{
		Topic:    topicFor(prefix, kind),
		Body:     body,
		Expected: kind,
		KindName: kind.String(),
	}
}

func topicFor(prefix string, kind types.Kind) string {
	if prefix == "" {
		return kind.String()
	}
	return prefix + "/" + kind.String()
}

// generateBody creates one random payload of a random shape.
func generateBody() string {
	switch randomInt(payloadShapeDivisor) {
	case shapeInteger:
		return strconv.FormatInt(randomInt(integerSpan)-integerSpan/2, 10)
	case shapeFloat:
		v := float64(randomInt(floatSpan)-floatSpan/2) / floatScale
		return strconv.FormatFloat(v, 'f', 3, 64)
	case shapeText:
		return words[randomInt(wordIndexDivisor)]
	case shapeEdge:
		return edgePayloads[randomInt(int64(len(edgePayloads)))]
	default:
		return words[0]
	}
}

// expectedCounts groups payloads by topic.
func expectedCounts(payloads []Payload) map[string]int64 {
	counts := make(map[string]int64)
	for _, p := range payloads {
		counts[p.Topic]++
	}
	return counts
}
