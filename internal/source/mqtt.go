package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/metrics"
)

// ClientFactory creates the MQTT client. Tests replace it to avoid a broker.
type ClientFactory func(opts *MQTT.ClientOptions) MQTT.Client

// MQTTOption configures an MQTTSource.
type MQTTOption func(*MQTTSource)

// WithClientFactory sets a custom factory for creating the MQTT client.
func WithClientFactory(f ClientFactory) MQTTOption {
	return func(s *MQTTSource) {
		s.factory = f
	}
}

// MQTTSource reads force/torque batches and joint events from an MQTT broker.
// Force/torque payloads are queued for ReadSamples; joint payloads are
// dispatched to subscribers as they arrive.
type MQTTSource struct {
	cfg     config.MQTTConfig
	factory ClientFactory
	hub     *hub
	queue   chan *Reading
	logger  *zap.SugaredLogger

	mu     sync.Mutex
	client MQTT.Client
}

// NewMQTTSource creates an MQTT source. Call Connect before sampling.
func NewMQTTSource(cfg config.MQTTConfig, log *zap.SugaredLogger, opts ...MQTTOption) *MQTTSource {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	s := &MQTTSource{
		cfg:     cfg,
		factory: MQTT.NewClient,
		hub:     newHub(),
		queue:   make(chan *Reading, cfg.QueueSize),
		logger:  log.Named("MQTTSource"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes the broker connection, retrying with exponential backoff.
// Topic subscriptions are (re)made from the on-connect handler.
func (s *MQTTSource) Connect(ctx context.Context) error {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(s.cfg.ConnectTimeout)
	// Per-topic arrival order is the append order of the buffers.
	opts.SetOrderMatters(true)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(s.onConnectionLost)

	client := s.factory(opts)

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.ConnectRetries),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		token := client.Connect()
		if !token.WaitTimeout(s.cfg.ConnectTimeout) {
			s.logger.Warnf("connect timed out: broker=%s, attempt=%d", s.cfg.Broker, attempt)
			return fmt.Errorf("connect to %s timed out", s.cfg.Broker)
		}
		if err := token.Error(); err != nil {
			s.logger.Warnf("connect failed: broker=%s, attempt=%d, error=%v", s.cfg.Broker, attempt, err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.logger.Infof("connected to broker: broker=%s, client_id=%s", s.cfg.Broker, s.cfg.ClientID)
	return nil
}

// onConnect subscribes once the connection is established. Required to re-subscribe after reconnects.
func (s *MQTTSource) onConnect(c MQTT.Client) {
	topics := map[string]MQTT.MessageHandler{
		s.cfg.ForceTorqueTopic: s.onForceTorque,
		s.cfg.JointTopic:       s.onJoint,
	}
	for topic, handler := range topics {
		if topic == "" {
			continue
		}
		token := c.Subscribe(topic, s.cfg.QoS, handler)
		if token.Wait() && token.Error() != nil {
			s.logger.Errorf("subscribe failed: topic=%s, error=%v", topic, token.Error())
			continue
		}
		s.logger.Debugf("subscribed: topic=%s, qos=%d", topic, s.cfg.QoS)
	}
}

func (s *MQTTSource) onConnectionLost(_ MQTT.Client, err error) {
	s.logger.Warnf("connection lost, reconnecting: error=%v", err)
}

func (s *MQTTSource) onForceTorque(_ MQTT.Client, msg MQTT.Message) {
	reading, err := decodeReading(msg.Payload())
	if err != nil {
		metrics.SourceDroppedTotal.WithLabelValues("invalid").Inc()
		s.logger.Warnf("dropping invalid force/torque payload: topic=%s, error=%v", msg.Topic(), err)
		return
	}

	select {
	case s.queue <- reading:
	default:
		metrics.SourceDroppedTotal.WithLabelValues("queue_full").Inc()
		s.logger.Debugf("reading queue full, dropping: topic=%s", msg.Topic())
	}
}

func (s *MQTTSource) onJoint(_ MQTT.Client, msg MQTT.Message) {
	ev, err := decodeEvent(msg.Payload())
	if err != nil {
		metrics.SourceDroppedTotal.WithLabelValues("invalid").Inc()
		s.logger.Warnf("dropping invalid joint payload: topic=%s, error=%v", msg.Topic(), err)
		return
	}
	s.hub.dispatch(ev)
}

// ReadSamples returns the next queued reading, waiting up to timeout.
func (s *MQTTSource) ReadSamples(ctx context.Context, timeout time.Duration) (*Reading, error) {
	select {
	case r := <-s.queue:
		return r, nil
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case r := <-s.queue:
		return r, nil
	case <-t.C:
		return nil, ErrNoData
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers h for joint events.
func (s *MQTTSource) Subscribe(h Handler) (Subscription, error) {
	if s.cfg.JointTopic == "" {
		return 0, errors.New("no joint topic configured")
	}
	return s.hub.subscribe(h), nil
}

// Unsubscribe removes a handler.
func (s *MQTTSource) Unsubscribe(sub Subscription) error {
	s.hub.unsubscribe(sub)
	return nil
}

// WaitIdle blocks until no joint event dispatch is in flight.
func (s *MQTTSource) WaitIdle(ctx context.Context) error {
	return s.hub.waitIdle(ctx)
}

// Close unsubscribes from the broker topics and disconnects.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}

	var topics []string
	for _, topic := range []string{s.cfg.ForceTorqueTopic, s.cfg.JointTopic} {
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) > 0 {
		token := client.Unsubscribe(topics...)
		if !token.WaitTimeout(s.cfg.ConnectTimeout) {
			s.logger.Warn("unsubscribe timed out")
		} else if err := token.Error(); err != nil {
			s.logger.Warnf("unsubscribe failed: error=%v", err)
		}
	}

	client.Disconnect(250)
	s.logger.Debug("disconnected from broker")
	return nil
}

func decodeReading(payload []byte) (*Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decoding reading: %w", err)
	}
	if len(r.Force) == 0 || len(r.Torque) == 0 {
		return nil, errors.New("reading has no force/torque samples")
	}
	return &r, nil
}

func decodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return ev, nil
}
