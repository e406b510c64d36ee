package testpublish

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/okian/topicsink/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("publish timed out")

// Publisher sends one payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, payload string) error
	Close()
}

// pahoPublisher publishes through a paho client.
type pahoPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

// newPahoPublisher connects to the broker in config.
func newPahoPublisher(config *Config) (*pahoPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID("topicsink-publish-" + uuid.NewString()[:8]).
		SetCleanSession(true).
		SetConnectTimeout(config.Timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("connect to %s: %w", config.BrokerURL, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.BrokerURL, err)
	}
	return &pahoPublisher{client: client, timeout: config.Timeout}, nil
}

func (p *pahoPublisher) Publish(ctx context.Context, topic string, qos byte, payload string) error {
	token := p.client.Publish(topic, qos, false, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(p.timeout):
		return ErrPublishTimeout
	}
}

func (p *pahoPublisher) Close() { p.client.Disconnect(disconnectQuiesceMS) }

// publishPayloads fans payloads out to config.Workers publishers, paced by
// config.Rate when it is positive.
func publishPayloads(ctx context.Context, config *Config, pub Publisher, payloads []Payload, stats *Stats) error {
	logger.Get().Info(ctx, "publishing payloads",
		logger.Int("count", len(payloads)),
		logger.Int("workers", config.Workers),
		logger.Float64("rate", config.Rate))

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}

	var published, failed int64
	jobs := make(chan Payload, config.Workers*WorkerChannelMultiplier)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, p := range payloads {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- p:
			}
		}
		return nil
	})

	workers := max(config.Workers, 1)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for p := range jobs {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
				if err := pub.Publish(gctx, p.Topic, config.QoS, p.Body); err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(gctx, "publish failed",
							logger.String("topic", p.Topic),
							logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&published, 1)
			}
			return nil
		})
	}

	err := g.Wait()
	stats.Published = int(published)
	stats.Failed = int(failed)
	if err != nil {
		return fmt.Errorf("publishing interrupted: %w", err)
	}

	logger.Get().Info(ctx, "published payloads",
		logger.Int("published", stats.Published),
		logger.Int("failed", stats.Failed))
	return nil
}
