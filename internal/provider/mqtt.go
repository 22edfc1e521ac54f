package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smart_environment/internal/logger"
	"smart_environment/internal/models"
)

const defaultMQTTMaxAge = 2 * time.Minute

// MQTTConfig configures a subscription to sensor readings pushed by the
// microcontroller.
type MQTTConfig struct {
	Broker   string        `mapstructure:"broker"` // e.g. tcp://192.168.0.10:1883
	ClientID string        `mapstructure:"client_id"`
	Topic    string        `mapstructure:"topic"`
	QoS      byte          `mapstructure:"qos"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

func (c *MQTTConfig) applyDefaults(name string) {
	if c.ClientID == "" {
		c.ClientID = "smart-env-" + name
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMQTTMaxAge
	}
	if c.QoS > 2 {
		c.QoS = 1
	}
}

// MQTT keeps the newest reading received on a topic; Fetch serves it while
// it is fresh.
type MQTT struct {
	name   string
	source models.Source
	cfg    MQTTConfig
	fields FieldMap
	clock  func() time.Time
	log    *logger.Logger

	client mqtt.Client

	mu         sync.RWMutex
	latest     models.Sample
	receivedAt time.Time
	connected  bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewMQTT(name string, src models.Source, cfg MQTTConfig, fields FieldMap, opts Options) *MQTT {
	opts = opts.withDefaults()
	cfg.applyDefaults(name)
	fields.applyDefaults()
	p := &MQTT{
		name:   name,
		source: src,
		cfg:    cfg,
		fields: fields,
		clock:  opts.Clock,
		log:    opts.Logger.Named("mqtt"),
		stopCh: make(chan struct{}),
	}
	p.client = mqtt.NewClient(p.clientOptions())
	return p
}

// clientOptions re-subscribes from the connect handler so subscriptions
// survive reconnects.
func (p *MQTT) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		p.setConnected(true)
		p.log.Infow("mqtt_connected", "broker", p.cfg.Broker, "topic", p.cfg.Topic)
		// Subscribe must not block the paho callback goroutine.
		go p.subscribe(c)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.log.Warnw("mqtt_connection_lost", "broker", p.cfg.Broker, "error", err)
	})

	return opts
}

func (p *MQTT) Name() string          { return p.name }
func (p *MQTT) Source() models.Source { return p.source }

// Start connects to the broker.
func (p *MQTT) Start(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("mqtt provider %s stopped", p.name)
	default:
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return fmt.Errorf("mqtt provider %s stopped", p.name)
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", p.cfg.Broker, err)
	}
	return nil
}

func (p *MQTT) subscribe(c mqtt.Client) {
	token := c.Subscribe(p.cfg.Topic, p.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		p.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		p.log.Errorw("mqtt_subscribe_timeout", "topic", p.cfg.Topic)
		return
	}
	if err := token.Error(); err != nil {
		p.log.Errorw("mqtt_subscribe_failed", "topic", p.cfg.Topic, "error", err)
		return
	}
	p.log.Infow("mqtt_subscribed", "topic", p.cfg.Topic, "qos", p.cfg.QoS)
}

func (p *MQTT) handleMessage(topic string, payload []byte) {
	doc, err := decodeJSON(payload)
	if err != nil {
		p.log.Warnw("mqtt_payload_malformed", "topic", topic, "size", len(payload), "error", err)
		return
	}
	now := p.clock()
	s, err := sampleFromDoc(doc, p.fields, p.source, now)
	if err != nil {
		p.log.Warnw("mqtt_payload_invalid", "topic", topic, "error", err)
		return
	}

	p.mu.Lock()
	p.latest = s
	p.receivedAt = now
	p.mu.Unlock()
	p.log.Debugw("mqtt_sample_received", "topic", topic, "captured_at", s.CapturedAt)
}

// Fetch returns the newest reading if it arrived within MaxAge.
func (p *MQTT) Fetch(ctx context.Context) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	p.mu.RLock()
	s, at := p.latest, p.receivedAt
	p.mu.RUnlock()

	if at.IsZero() {
		return models.Sample{}, fmt.Errorf("%w: no reading received on %s", ErrUnavailable, p.cfg.Topic)
	}
	if age := p.clock().Sub(at); age > p.cfg.MaxAge {
		return models.Sample{}, fmt.Errorf("%w: last reading on %s is %s old", ErrUnavailable, p.cfg.Topic, age.Round(time.Second))
	}
	return s, nil
}

// IsConnected reports the broker session state.
func (p *MQTT) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.client.IsConnected()
}

// Close unsubscribes and disconnects. Safe to call more than once.
func (p *MQTT) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.IsConnected() {
		p.client.Unsubscribe(p.cfg.Topic).WaitTimeout(2 * time.Second)
	}
	p.client.Disconnect(250)
	p.setConnected(false)
	p.log.Infow("mqtt_disconnected", "broker", p.cfg.Broker)
}

func (p *MQTT) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
