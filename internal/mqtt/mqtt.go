// Package mqtt publishes JSON telemetry to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"dcim-server/internal/config"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt publisher stopped")
)

const (
	qosAtLeastOnce = byte(1)
	publishTimeout = 5 * time.Second
)

// connectRetryInterval is how long paho waits between initial connect attempts.
var connectRetryInterval = 5 * time.Second

type Publisher struct {
	client    paho.Client
	broker    string
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	// connectTok is the in-flight connect attempt, shared by Connect calls.
	connectTok paho.Token

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		broker: fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort),
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", p.broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "broker", p.broker, "error", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// Connect waits until the broker accepts the connection, ctx is done, or
// Disconnect is called. When ctx ends first the attempt keeps retrying in
// the background; only Disconnect stops it.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.startConnect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				p.clearConnect(token)
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnect runs asynchronously; record the state now.
			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

func (p *Publisher) startConnect() paho.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectTok == nil {
		p.connectTok = p.client.Connect()
	}
	return p.connectTok
}

func (p *Publisher) clearConnect(token paho.Token) {
	p.mu.Lock()
	if p.connectTok == token {
		p.connectTok = nil
	}
	p.mu.Unlock()
}

// PublishJSON marshals v and publishes it with QoS 1, not retained.
func (p *Publisher) PublishJSON(topic string, v any) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := p.client.Publish(topic, qosAtLeastOnce, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug("published", "topic", topic, "size", len(data))
	return nil
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect closes the connection and stops pending Connect calls.
// Safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.client.Disconnect(250)

	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
