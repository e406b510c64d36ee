// Package broker subscribes to an MQTT broker and forwards publishes to a Dispatcher.
package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/okian/topicsink/internal/domain/model"
	"github.com/okian/topicsink/pkg/logger"
	"github.com/okian/topicsink/pkg/metrics"
)

// Default subscriber settings.
const (
	DefaultBroker         = "tcp://localhost:1883"
	DefaultConnectTimeout = 10 * time.Second
	clientIDPrefix        = "topicsink-"
	clientIDSuffixLen     = 12
	disconnectQuiesceMS   = 250
	reconnectInterval     = 5 * time.Second
)

// Dispatcher accepts inbound messages without blocking the caller for long.
type Dispatcher interface {
	Dispatch(ctx context.Context, m model.InboundMessage) error
}

// Subscriber owns one paho client and its subscriptions.
type Subscriber struct {
	brokerURL      string
	clientID       string
	username       string
	password       string
	topics         []string
	qos            byte
	connectTimeout time.Duration

	dispatcher Dispatcher
	logger     logger.Logger
	newClient  func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client
	ctx    context.Context
}

// NewSubscriber creates a Subscriber that forwards messages to d.
func NewSubscriber(d Dispatcher, opts ...Option) *Subscriber {
	s := &Subscriber{
		brokerURL:      DefaultBroker,
		topics:         []string{"#"},
		connectTimeout: DefaultConnectTimeout,
		dispatcher:     d,
		logger:         logger.Get().Named("broker"),
		newClient:      mqtt.NewClient,
		ctx:            context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clientID == "" {
		s.clientID = GenerateClientID()
	}
	return s
}

// GenerateClientID returns a random identifier short enough for MQTT 3.1 brokers.
func GenerateClientID() string {
	return clientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
}

// ClientID returns the identifier used on connect.
func (s *Subscriber) ClientID() string { return s.clientID }

// Topics returns the subscription filters.
func (s *Subscriber) Topics() []string { return append([]string(nil), s.topics...) }

// ClientOptions builds the paho options. Subscriptions are (re)issued from the
// connect handler so they survive automatic reconnects.
func (s *Subscriber) ClientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(s.brokerURL).
		SetClientID(s.clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval).
		SetConnectTimeout(s.connectTimeout).
		SetOrderMatters(false).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			s.logger.Info(s.runContext(), "reconnecting to broker", logger.String("broker", s.brokerURL))
		}).
		SetDefaultPublishHandler(s.handleMessage)
	if s.username != "" {
		opts.SetUsername(s.username)
		opts.SetPassword(s.password)
	}
	return opts
}

// Start connects to the broker. It returns once the first connection attempt
// completes or the connect timeout elapses; retries continue in the background.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.dispatcher == nil {
		return ErrNoDispatcher
	}

	s.mu.Lock()
	if s.client != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	// Messages arriving between a shutdown signal and Stop are still handed
	// to the dispatcher, which drains them.
	s.ctx = context.WithoutCancel(ctx)
	client := s.newClient(s.ClientOptions())
	s.client = client
	s.mu.Unlock()

	s.logger.Info(ctx, "connecting to broker",
		logger.String("broker", s.brokerURL),
		logger.String("client_id", s.clientID),
		logger.Any("topics", s.topics),
	)

	token := client.Connect()
	if !token.WaitTimeout(s.connectTimeout) {
		s.logger.Warn(ctx, "broker not reachable yet, retrying in background",
			logger.String("broker", s.brokerURL))
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnect, s.brokerURL, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop(ctx context.Context) {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return
	}
	client.Disconnect(disconnectQuiesceMS)
	metrics.UpdateBrokerConnected(false)
	s.logger.Info(ctx, "disconnected from broker")
}

// IsConnected reports whether the client currently holds a broker connection.
func (s *Subscriber) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.IsConnectionOpen()
}

// runContext returns the context set by Start. Paho callbacks run on its own
// goroutines, so reads go through the lock.
func (s *Subscriber) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Subscriber) onConnect(c mqtt.Client) {
	ctx := s.runContext()
	metrics.UpdateBrokerConnected(true)
	s.logger.Info(ctx, "connected to broker", logger.String("broker", s.brokerURL))

	if err := s.subscribe(ctx, c); err != nil {
		metrics.RecordErrorByComponent("broker", "subscribe_failed")
		s.logger.Error(ctx, "subscribe failed", logger.Error(err))
	}
}

func (s *Subscriber) subscribe(ctx context.Context, c mqtt.Client) error {
	filters := make(map[string]byte, len(s.topics))
	for _, t := range s.topics {
		filters[t] = s.qos
	}

	token := c.SubscribeMultiple(filters, s.handleMessage)
	if !token.WaitTimeout(s.connectTimeout) {
		return fmt.Errorf("%w: %w", ErrSubscribe, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	s.logger.Info(ctx, "subscribed", logger.Any("topics", s.topics), logger.Int("qos", int(s.qos)))
	return nil
}

func (s *Subscriber) onConnectionLost(_ mqtt.Client, err error) {
	metrics.UpdateBrokerConnected(false)
	metrics.RecordErrorByComponent("broker", "connection_lost")
	s.logger.Warn(s.runContext(), "broker connection lost", logger.Error(err))
}

// handleMessage runs on the paho router goroutine and must return quickly.
func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	metrics.RecordMessageReceived()

	m := model.InboundMessage{
		Topic:      msg.Topic(),
		Payload:    string(msg.Payload()),
		ReceivedAt: time.Now(),
	}
	ctx := s.runContext()
	if err := s.dispatcher.Dispatch(ctx, m); err != nil {
		s.logger.Debug(ctx, "message not dispatched",
			logger.String("topic", m.Topic), logger.Error(err))
	}
}
