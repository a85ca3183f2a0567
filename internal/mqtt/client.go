package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/safeguardian/internal/logger"
)

// QoS used for every publish and subscription.
const qos byte = 1

// disconnectQuiesce is how long Close waits for in-flight work, in milliseconds.
const disconnectQuiesce = 250

// resubscribeTimeout bounds restoring one subscription after a reconnect.
const resubscribeTimeout = 10 * time.Second

// ErrNotConnected is returned when the broker connection is down.
var ErrNotConnected = errors.New("mqtt client is not connected")

// Handler processes one received payload.
type Handler func(ctx context.Context, topic string, payload []byte)

// Broker is the subset of broker operations the engine uses.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// Config holds the broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration
}

// Client wraps a paho client. Subscriptions are remembered and restored on
// every reconnect, since the session is clean.
type Client struct {
	client paho.Client
	// logCtx is used from paho callbacks, which carry no context.
	logCtx context.Context
	// subs maps topic to handler.
	subs map[string]Handler
	mu   sync.Mutex
}

// Connect dials the broker and waits for the session to be established.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	logCtx := logger.WithKV(logger.WithName(ctx, "mqtt"), "broker", cfg.Broker)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.WarnKV(logCtx, "MQTT connection lost", "error", err)
	})

	c := &Client{
		logCtx: logCtx,
		subs:   make(map[string]Handler),
	}

	opts.SetOnConnectHandler(c.onConnect)

	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	c.client = paho.NewClient(opts)

	if err := wait(ctx, c.client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return c, nil
}

// Publish sends payload to topic and waits for the broker acknowledgement
// or ctx.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	if err := wait(ctx, c.client.Publish(topic, qos, false, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Subscribe registers handler for topic. The subscription survives
// reconnects.
func (c *Client) Subscribe(ctx context.Context, topic string, handler Handler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if err := c.subscribe(ctx, c.client, topic, handler); err != nil {
		c.mu.Lock()
		delete(c.subs, topic)
		c.mu.Unlock()

		return err
	}

	logger.InfoKV(c.logCtx, "MQTT subscribed", "topic", topic)

	return nil
}

func (c *Client) subscribe(ctx context.Context, pc paho.Client, topic string, handler Handler) error {
	token := pc.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(c.logCtx, msg.Topic(), msg.Payload())
	})

	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	return nil
}

// onConnect runs on its own goroutine after every successful connect and
// restores the remembered subscriptions.
func (c *Client) onConnect(pc paho.Client) {
	logger.Info(c.logCtx, "MQTT connected")

	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))

	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subs {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.logCtx), resubscribeTimeout)
		err := c.subscribe(ctx, pc, topic, handler)

		cancel()

		if err != nil {
			logger.ErrorKV(c.logCtx, "Failed to restore MQTT subscription", "topic", topic, "error", err)

			continue
		}

		logger.InfoKV(c.logCtx, "MQTT subscription restored", "topic", topic)
	}
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
