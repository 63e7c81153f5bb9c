// Package periphpin exposes host GPIO lines from periph.io as pinctl.Pins,
// for boards where the converter's control lines are wired straight to the
// SoC instead of through an expander.
//
// Pin numbers are positions in the list given to New or ByName.
package periphpin

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/epicfatigue/pcm1808/pinctl"
)

type Pins struct {
	mu      sync.Mutex
	lines   []gpio.PinIO
	outputs []bool
	levels  []gpio.Level
}

func New(lines ...gpio.PinIO) *Pins {
	return &Pins{
		lines:   lines,
		outputs: make([]bool, len(lines)),
		levels:  make([]gpio.Level, len(lines)),
	}
}

// ByName looks every name up in the gpioreg registry, e.g. "GPIO17".
// The host drivers must already be loaded (host.Init).
func ByName(names ...string) (*Pins, error) {
	lines := make([]gpio.PinIO, len(names))
	for i, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("periphpin: no gpio named %q: %w", n, pinctl.ErrInvalidPin)
		}
		lines[i] = p
	}
	return New(lines...), nil
}

// Line returns the underlying periph pin.
func (p *Pins) Line(pin int) (gpio.PinIO, error) {
	if err := pinctl.CheckPin(pin, len(p.lines)); err != nil {
		return nil, fmt.Errorf("periphpin: %w", err)
	}
	return p.lines[pin], nil
}

// SetPinDirection switches the line to output at its last written level
// (low if never written), or to input with the pull left unchanged.
func (p *Pins) SetPinDirection(pin int, dir pinctl.Direction) error {
	line, err := p.Line(pin)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch dir {
	case pinctl.Output:
		if err := line.Out(p.levels[pin]); err != nil {
			return fmt.Errorf("periphpin %s: output: %w", line.Name(), err)
		}
		p.outputs[pin] = true
	case pinctl.Input:
		if err := line.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("periphpin %s: input: %w", line.Name(), err)
		}
		p.outputs[pin] = false
	default:
		return fmt.Errorf("periphpin %s: unknown direction %v", line.Name(), dir)
	}
	return nil
}

func (p *Pins) WritePin(pin int, level pinctl.Level) error {
	line, err := p.Line(pin)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.outputs[pin] {
		return fmt.Errorf("periphpin %s: %w", line.Name(), pinctl.ErrDirection)
	}
	l := gpio.Level(level)
	if err := line.Out(l); err != nil {
		return fmt.Errorf("periphpin %s: write %v: %w", line.Name(), level, err)
	}
	p.levels[pin] = l
	return nil
}
