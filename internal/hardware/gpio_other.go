//go:build !linux

package hardware

import "time"

// GPIORelay is not available on non-Linux platforms.
type GPIORelay struct{}

func NewGPIORelay(string, int) (*GPIORelay, error) { return nil, ErrUnsupported }

func (r *GPIORelay) Set(bool) error { return ErrUnsupported }
func (r *GPIORelay) Close() error   { return nil }

// GPIOPulses is not available on non-Linux platforms.
type GPIOPulses struct{}

func NewGPIOPulses(string, int, int) (*GPIOPulses, error) { return nil, ErrUnsupported }

func (p *GPIOPulses) Pulses() <-chan time.Time { return nil }
func (p *GPIOPulses) Dropped() int64           { return 0 }
func (p *GPIOPulses) Close() error             { return nil }
