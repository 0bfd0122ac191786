package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

// FragmentMessage is a statistics fragment published by an external producer
type FragmentMessage struct {
	Address  string               `json:"address"`
	Source   string               `json:"source"`
	Fragment entity.StatsFragment `json:"fragment"`
}

// NATSConsumer consumes statistics fragments from NATS JetStream, falling back to core NATS
type NATSConsumer struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	sub       *nats.Subscription
	config    *config.NATSConfig
	logger    *logger.Logger
	msgChan   chan *FragmentMessage
	isRunning atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewNATSConsumer creates a new NATS consumer
func NewNATSConsumer(cfg *config.NATSConfig, logger *logger.Logger) *NATSConsumer {
	size := cfg.MaxPendingMessages
	if size <= 0 {
		size = 1024
	}
	return &NATSConsumer{
		config:  cfg,
		logger:  logger.WithComponent("nats-consumer"),
		msgChan: make(chan *FragmentMessage, size),
		done:    make(chan struct{}),
	}
}

// Subject returns the subject fragments are published on
func (n *NATSConsumer) Subject() string {
	return fmt.Sprintf("%s.fragments", n.config.SubjectPrefix)
}

// Connect connects to NATS server and sets up consumer
func (n *NATSConsumer) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name("onchain-intel"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.conn = conn

	// Try JetStream first, if not available fall back to core NATS
	js, err := conn.JetStream(nats.Context(ctx))
	if err != nil {
		n.logger.Warn("JetStream not available, using core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.js = js
	return n.setupJetStreamSubscription()
}

// setupJetStreamSubscription binds a durable pull consumer named after the consumer group
func (n *NATSConsumer) setupJetStreamSubscription() error {
	subject := n.Subject()
	durable := n.config.ConsumerGroup

	n.logger.Info("Setting up JetStream subscription",
		zap.String("subject", subject),
		zap.String("stream", n.config.StreamName),
		zap.String("consumer", durable))

	sub, err := n.js.PullSubscribe(subject, durable, nats.BindStream(n.config.StreamName))
	if err != nil {
		n.logger.Warn("Failed to create pull consumer, falling back to core NATS", zap.Error(err))
		return n.setupCoreNATSSubscription()
	}

	n.sub = sub
	n.isRunning.Store(true)

	n.wg.Add(1)
	go n.processJetStreamMessages()

	n.logger.Info("Successfully connected to NATS JetStream",
		zap.String("subject", subject),
		zap.String("consumer", durable))

	return nil
}

// processJetStreamMessages processes messages from JetStream pull subscription
func (n *NATSConsumer) processJetStreamMessages() {
	defer n.wg.Done()
	n.logger.Info("Starting JetStream message processing")

	for n.isRunning.Load() {
		msgs, err := n.sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if !n.isRunning.Load() {
				break
			}
			n.logger.Error("Failed to fetch messages", zap.Error(err))
			continue
		}

		n.logger.Debug("Fetched messages from JetStream", zap.Int("count", len(msgs)))

		for _, msg := range msgs {
			n.handleMessage(msg)
		}
	}

	n.logger.Info("Stopped JetStream message processing")
}

// setupCoreNATSSubscription sets up core NATS subscription
func (n *NATSConsumer) setupCoreNATSSubscription() error {
	subject := n.Subject()
	queueGroup := n.config.ConsumerGroup

	n.logger.Info("Setting up core NATS subscription",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	sub, err := n.conn.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		n.handleMessage(msg)
	})
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub
	n.isRunning.Store(true)

	n.logger.Info("Successfully connected to core NATS",
		zap.String("subject", subject),
		zap.String("queue_group", queueGroup))

	return nil
}

// handleMessage decodes a fragment and hands it to the processing channel
func (n *NATSConsumer) handleMessage(msg *nats.Msg) {
	fragment, err := DecodeFragment(msg.Data)
	if err != nil {
		n.logger.Error("Failed to decode fragment", zap.Error(err))
		// Malformed payloads never become valid; acknowledge so they are not redelivered.
		if msg.Reply != "" {
			msg.Ack()
		}
		return
	}

	select {
	case <-n.done:
		if msg.Reply != "" {
			msg.Nak()
		}
	case n.msgChan <- fragment:
		n.logger.Debug("Sent fragment to processing channel",
			zap.String("address", fragment.Address),
			zap.String("source", fragment.Source))
		if msg.Reply != "" {
			msg.Ack()
		}
	default:
		n.logger.Warn("Message channel is full, dropping fragment", zap.String("address", fragment.Address))
		if msg.Reply != "" {
			msg.Nak()
		}
	}
}

// DecodeFragment parses and validates a fragment payload
func DecodeFragment(data []byte) (*FragmentMessage, error) {
	var msg FragmentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fragment: %w", err)
	}
	msg.Address = strings.TrimSpace(msg.Address)
	if msg.Address == "" {
		return nil, fmt.Errorf("fragment has no address: %w", entity.ErrInvalidInput)
	}
	if len(msg.Fragment) == 0 {
		return nil, fmt.Errorf("fragment for %s is empty: %w", msg.Address, entity.ErrInvalidInput)
	}
	if msg.Source == "" {
		msg.Source = "nats"
	}
	return &msg, nil
}

// Disconnect disconnects from NATS server. Done is closed once no more fragments
// will be delivered.
func (n *NATSConsumer) Disconnect() error {
	n.closeOnce.Do(func() {
		n.isRunning.Store(false)
		close(n.done)

		if n.sub != nil {
			n.sub.Unsubscribe()
		}
		if n.conn != nil {
			n.conn.Close()
		}
		n.wg.Wait()
		n.logger.Info("Disconnected from NATS")
	})
	return nil
}

// Done is closed when the consumer disconnects
func (n *NATSConsumer) Done() <-chan struct{} {
	return n.done
}

// IsConnected checks if connected to NATS
func (n *NATSConsumer) IsConnected() bool {
	return n.isRunning.Load() && n.conn != nil && n.conn.IsConnected()
}

// GetMessageChannel returns the message channel
func (n *NATSConsumer) GetMessageChannel() <-chan *FragmentMessage {
	return n.msgChan
}
