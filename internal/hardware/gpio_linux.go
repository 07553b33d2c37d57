//go:build linux

package hardware

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIORelay drives the heating relay from a GPIO output line.
type GPIORelay struct {
	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewGPIORelay requests offset on chip as an output, initially low (off).
func NewGPIORelay(chip string, offset int) (*GPIORelay, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("kiln-relay"))
	if err != nil {
		return nil, fmt.Errorf("request relay line %s:%d: %w", chip, offset, err)
	}
	return &GPIORelay{line: line}, nil
}

func (r *GPIORelay) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay line: %w", err)
	}
	return nil
}

// Close drives the line low and releases it.
func (r *GPIORelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.line == nil {
		return nil
	}
	_ = r.line.SetValue(0)
	err := r.line.Close()
	r.line = nil
	return err
}

// GPIOPulses turns rising edges on the meter's S0 output into pulse
// timestamps. Events are dropped when the consumer falls behind.
type GPIOPulses struct {
	line    *gpiocdev.Line
	ch      chan time.Time
	clock   *eventClock
	dropped atomic.Int64
	once    sync.Once
}

// NewGPIOPulses requests offset on chip as an edge-detecting input.
func NewGPIOPulses(chip string, offset, buffer int) (*GPIOPulses, error) {
	if buffer < 1 {
		buffer = 1
	}
	p := &GPIOPulses{ch: make(chan time.Time, buffer), clock: newEventClock(time.Now)}
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithConsumer("kiln-meter"),
		gpiocdev.WithEventHandler(p.handle),
	)
	if err != nil {
		return nil, fmt.Errorf("request pulse line %s:%d: %w", chip, offset, err)
	}
	p.line = line
	return p, nil
}

func (p *GPIOPulses) handle(evt gpiocdev.LineEvent) {
	select {
	case p.ch <- p.clock.at(evt.Timestamp):
	default:
		p.dropped.Add(1)
	}
}

func (p *GPIOPulses) Pulses() <-chan time.Time { return p.ch }

// Dropped reports pulses lost to a full buffer.
func (p *GPIOPulses) Dropped() int64 { return p.dropped.Load() }

// Close restores the line to a pulled-down input and releases it.
func (p *GPIOPulses) Close() error {
	var err error
	p.once.Do(func() {
		if rerr := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
			err = fmt.Errorf("reconfigure pulse line: %w", rerr)
		}
		if cerr := p.line.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close pulse line: %w", cerr)
		}
	})
	return err
}
