package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/mqtt"
	"kiln_controller/internal/repository"

	"github.com/google/uuid"
)

// DefaultQueueSize bounds the notification queue between the controller and
// its collaborators.
const DefaultQueueSize = 256

const sinkTimeout = 5 * time.Second

// Broadcaster pushes live messages to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(kind string, data any)
}

// MetricsRecorder receives controller notifications for Prometheus.
type MetricsRecorder interface {
	RecordTelemetry(models.TelemetrySample)
	RecordAlarm(models.AlarmCode)
	RecordPhaseChange(models.PhaseChange)
	RecordDropped()
}

// Sinks are the optional collaborators a Dispatcher fans out to. Nil
// members are skipped.
type Sinks struct {
	Publisher   mqtt.Publisher
	Broadcaster Broadcaster
	Metrics     MetricsRecorder
	Events      repository.EventRepo
	Runs        repository.RunRepo
	History     HistoryStore
}

type noteKind int

const (
	noteTelemetry noteKind = iota
	noteDisplay
	noteTemperature
	noteAlarm
	notePhase
)

type note struct {
	kind      noteKind
	at        time.Time
	telemetry models.TelemetrySample
	text      string
	temp      float64
	alarm     models.Alarm
	phase     models.PhaseChange
}

// Dispatcher implements kiln.Notifier. Notifications are queued without
// blocking the controller and delivered by Run; when the queue is full they
// are dropped.
type Dispatcher struct {
	sinks Sinks
	log   *logger.Logger
	queue chan note
	now   func() time.Time

	dropped atomic.Int64
}

func NewDispatcher(sinks Sinks, queueSize int, log *logger.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sinks: sinks,
		log:   log,
		queue: make(chan note, queueSize),
		now:   time.Now,
	}
}

func (d *Dispatcher) OnTelemetry(s models.TelemetrySample) {
	d.enqueue(note{kind: noteTelemetry, at: s.At, telemetry: s})
}

func (d *Dispatcher) OnDisplayText(text string) {
	d.enqueue(note{kind: noteDisplay, at: d.now(), text: text})
}

func (d *Dispatcher) OnTemperatureEvent(temp float64) {
	d.enqueue(note{kind: noteTemperature, at: d.now(), temp: temp})
}

func (d *Dispatcher) OnAlarm(a models.Alarm) {
	d.enqueue(note{kind: noteAlarm, at: a.At, alarm: a})
}

func (d *Dispatcher) OnPhaseChange(pc models.PhaseChange) {
	d.enqueue(note{kind: notePhase, at: pc.At, phase: pc})
}

func (d *Dispatcher) enqueue(n note) {
	select {
	case d.queue <- n:
	default:
		if d.dropped.Add(1) == 1 {
			d.log.Warnw("notification_queue_full", "kind", n.kind)
		}
		if d.sinks.Metrics != nil {
			d.sinks.Metrics.RecordDropped()
		}
	}
}

// Dropped is the number of notifications discarded on overflow.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Run delivers queued notifications until ctx is cancelled, then drains what
// is left so the final phase change is recorded.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n note) {
	switch n.kind {
	case noteTelemetry:
		d.telemetry(n.telemetry)
	case noteDisplay:
		d.display(n.at, n.text)
	case noteTemperature:
		d.broadcast("temperature", map[string]any{"at": n.at.UTC(), "temperature_c": n.temp})
	case noteAlarm:
		d.alarm(ctx, n.alarm)
	case notePhase:
		d.phaseChange(ctx, n.phase)
	}
}

func (d *Dispatcher) telemetry(s models.TelemetrySample) {
	if d.sinks.Metrics != nil {
		d.sinks.Metrics.RecordTelemetry(s)
	}
	if d.sinks.History != nil {
		if err := d.sinks.History.Append(s); err != nil {
			d.log.Errorw("history_append_failed", "err", err)
		}
	}
	if d.sinks.Publisher != nil {
		if err := d.sinks.Publisher.PublishTelemetry(s); err != nil {
			d.log.Errorw("mqtt_publish_failed", "topic", "telemetry", "err", err)
		}
	}
	d.broadcast("telemetry", s)
}

func (d *Dispatcher) display(at time.Time, text string) {
	if d.sinks.Publisher != nil {
		if err := d.sinks.Publisher.PublishStatus(mqtt.StatusMessage{At: at, Display: text}); err != nil {
			d.log.Errorw("mqtt_publish_failed", "topic", "status", "err", err)
		}
	}
	d.broadcast("display", map[string]any{"at": at.UTC(), "text": text})
}

func (d *Dispatcher) alarm(ctx context.Context, a models.Alarm) {
	d.log.Warnw("alarm_raised", "code", a.Code, "message", a.Message)
	if d.sinks.Metrics != nil {
		d.sinks.Metrics.RecordAlarm(a.Code)
	}
	if d.sinks.Publisher != nil {
		if err := d.sinks.Publisher.PublishAlarm(a); err != nil {
			d.log.Errorw("mqtt_publish_failed", "topic", "alarm", "err", err)
		}
	}
	d.appendEvent(ctx, models.FiringEvent{
		OccurredAt:  a.At,
		Type:        models.EventAlarm,
		Description: a.Message,
		Metadata:    map[string]any{"code": a.Code},
	})
	d.broadcast("alarm", a)
}

func (d *Dispatcher) phaseChange(ctx context.Context, pc models.PhaseChange) {
	d.log.Infow("phase_changed", "run_id", pc.RunID, "from", pc.From, "to", pc.To, "step", pc.Step, "reason", pc.Reason)
	if d.sinks.Metrics != nil {
		d.sinks.Metrics.RecordPhaseChange(pc)
	}
	if d.sinks.Publisher != nil {
		if err := d.sinks.Publisher.PublishPhase(pc); err != nil {
			d.log.Errorw("mqtt_publish_failed", "topic", "phase", "err", err)
		}
	}
	d.appendEvent(ctx, models.FiringEvent{
		OccurredAt:  pc.At,
		Type:        models.EventPhaseChange,
		Description: fmt.Sprintf("%s -> %s: %s", pc.From, pc.To, pc.Reason),
		Metadata: map[string]any{
			"run_id": pc.RunID,
			"from":   pc.From,
			"to":     pc.To,
			"step":   pc.Step,
		},
	})

	switch {
	case pc.From == models.PhaseHolding && pc.To == models.PhaseSlowCooling:
		d.appendEvent(ctx, models.FiringEvent{
			OccurredAt:  pc.At,
			Type:        models.EventComplete,
			Description: pc.Reason,
			Metadata:    map[string]any{"run_id": pc.RunID, "elapsed_minutes": int(pc.Elapsed / time.Minute)},
		})
	case pc.To == models.PhaseIdle && d.sinks.Runs != nil:
		if err := d.sinks.Runs.Deactivate(ctx, pc.RunID, pc.At); err != nil {
			d.log.Errorw("run_deactivate_failed", "run_id", pc.RunID, "err", err)
		}
	}
	d.broadcast("phase", pc)
}

func (d *Dispatcher) appendEvent(ctx context.Context, e models.FiringEvent) {
	if d.sinks.Events == nil {
		return
	}
	e.EventID = uuid.NewString()
	e.OccurredAt = e.OccurredAt.UTC()
	if err := d.sinks.Events.Append(ctx, e); err != nil {
		d.log.Errorw("event_append_failed", "type", e.Type, "err", err)
	}
}

func (d *Dispatcher) broadcast(kind string, data any) {
	if d.sinks.Broadcaster != nil {
		d.sinks.Broadcaster.Broadcast(kind, data)
	}
}
