package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	bufferSize     = 256
)

// Options configures the broker connection.
type Options struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	TopicRoot string
}

// RealPublisher publishes to a broker. Messages published while disconnected
// are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logger.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher connects to the broker and registers an OFFLINE last will
// on the system topic.
func NewRealPublisher(o Options, log *logger.Logger) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: NewTopics(o.TopicRoot),
		log:    log,
		buf:    newRingBuffer(bufferSize),
	}

	will, _ := FormatSystem("OFFLINE", time.Time{})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	online, _ := FormatSystem("ONLINE", time.Now())
	c.Publish(p.topics.System, 1, true, online)

	p.mu.Lock()
	dropped := p.buf.dropped
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if dropped > 0 {
		p.log.Warnw("mqtt_buffer_overflow", "dropped", dropped)
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	p.log.Infow("mqtt_connected", "replayed", len(pending))
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RealPublisher) PublishTelemetry(s models.TelemetrySample) error {
	payload, err := FormatTelemetry(s)
	if err != nil {
		return fmt.Errorf("format telemetry: %w", err)
	}
	return p.publish(p.topics.Telemetry, 0, false, payload)
}

// PublishAlarm uses QoS 1 so alarms survive a flaky link.
func (p *RealPublisher) PublishAlarm(a models.Alarm) error {
	payload, err := FormatAlarm(a)
	if err != nil {
		return fmt.Errorf("format alarm: %w", err)
	}
	return p.publish(p.topics.Alarm, 1, false, payload)
}

// PublishStatus is retained so new subscribers see the current display line.
func (p *RealPublisher) PublishStatus(s StatusMessage) error {
	payload, err := FormatStatus(s)
	if err != nil {
		return fmt.Errorf("format status: %w", err)
	}
	return p.publish(p.topics.Status, 1, true, payload)
}

func (p *RealPublisher) PublishPhase(pc models.PhaseChange) error {
	payload, err := FormatPhase(pc)
	if err != nil {
		return fmt.Errorf("format phase: %w", err)
	}
	return p.publish(p.topics.Phase, 1, false, payload)
}

// Close publishes OFFLINE and disconnects.
func (p *RealPublisher) Close() error {
	if p.client.IsConnectionOpen() {
		offline, _ := FormatSystem("OFFLINE", time.Now())
		p.client.Publish(p.topics.System, 1, true, offline).WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(1000)
	return nil
}
