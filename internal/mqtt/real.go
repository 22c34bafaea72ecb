package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/dome-weather/internal/weather"
)

// DefaultBufferSize is the number of messages kept while the broker is unreachable.
const DefaultBufferSize = 256

const publishTimeout = 5 * time.Second

var errPublishTimeout = errors.New("publish timeout")

// Options configure a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages produced while
// disconnected wait in an outbox and are replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	out       *outbox
	connected func() bool
	send      func(msg queuedMsg) error
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "dome-weather"
	}
	p := newPublisher(o.BufferSize)

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("mqtt: connected", "broker", o.Broker)
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "error", err)
		})

	client := paho.NewClient(opts)
	p.client = client
	p.connected = client.IsConnectionOpen
	p.send = func(msg queuedMsg) error {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			return errPublishTimeout
		}
		return token.Error()
	}

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(bufferSize int) *RealPublisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &RealPublisher{out: newOutbox(bufferSize)}
}

// Publish sends the record (QoS 0) and the retained safe flag (QoS 1).
func (p *RealPublisher) Publish(rec weather.Record) error {
	payload, err := weather.FormatRecord(rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	if err := p.deliver(queuedMsg{topic: TopicRecords, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := p.deliver(queuedMsg{topic: TopicSafe, payload: SafePayload(rec.Verdict.Safe), qos: 1, retained: true}); err != nil {
		return fmt.Errorf("publish safe flag: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	if err := p.deliver(queuedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// deliver sends msg now or buffers it until the next connect.
func (p *RealPublisher) deliver(msg queuedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected() {
		p.out.add(msg)
		return nil
	}
	if err := p.send(msg); err != nil {
		p.out.add(msg)
		return err
	}
	return nil
}

// flush replays buffered messages. On the first failure the rest are kept.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.out.drain()
	for i, msg := range msgs {
		if err := p.send(msg); err != nil {
			slog.Warn("mqtt: replay failed", "remaining", len(msgs)-i, "error", err)
			for _, m := range msgs[i:] {
				p.out.add(m)
			}
			return
		}
	}
	if len(msgs) > 0 {
		slog.Info("mqtt: replayed buffered messages", "count", len(msgs))
	}
}

// Buffered returns the number of messages awaiting replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.pending()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.connected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000)
	}
	return nil
}
