// expander.go
//
// pinctl.Pins on top of a PCF8575.
//
// The chip is quasi-bidirectional, so "direction" is bookkeeping on our side:
//   - Output pins follow the shadow latch: High => bit=1 (released), Low => bit=0.
//   - Input pins are always released (bit=1) and refuse WritePin with
//     pinctl.ErrDirection.
//
// Concurrency:
//   - All I2C interactions are protected by a mutex (e.mu), so several chip
//     drivers may share one expander.
//
package pcf8575

import (
	"fmt"
	"log"
	"sync"

	"github.com/epicfatigue/pcm1808/pinctl"
	"github.com/reef-pi/rpi/i2c"
)

// Expander is one PCF8575 at one I2C address.
type Expander struct {
	hw port

	// Serialize ALL interactions with the chip.
	mu sync.Mutex

	// shadow holds the last latch we believe is on the device.
	shadow uint16

	// outputs has bit=1 for every pin configured as an output.
	outputs uint16

	debug bool
}

// NewExpander releases every pin on the chip and returns the expander.
// Every pin starts as an input.
func NewExpander(addr byte, bus i2c.Bus, debug bool) (*Expander, error) {
	e := &Expander{
		hw:     port{addr: addr, bus: bus},
		shadow: allHigh,
		debug:  debug,
	}

	// Safe state on boot: nothing driven low.
	if err := e.hw.write(allHigh); err != nil {
		return nil, fmt.Errorf("pcf8575 addr=0x%02X init: %w", addr, err)
	}
	if debug {
		log.Printf("pcf8575 init addr=0x%02X shadow=0x%04X (all released/high)", addr, e.shadow)
	}
	return e, nil
}

// Close leaves the latch untouched so that lines already driven (a halted
// clock, say) stay where they are. The bus is not closed.
func (e *Expander) Close() error { return nil }

// SetPinDirection marks pin as output or input. Switching to input releases
// the pin; switching to output keeps whatever level is latched.
func (e *Expander) SetPinDirection(pin int, dir pinctl.Direction) error {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return fmt.Errorf("pcf8575 addr=0x%02X: %w", e.hw.addr, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mask := uint16(1 << pin)
	switch dir {
	case pinctl.Output:
		e.outputs |= mask
	case pinctl.Input:
		e.outputs &^= mask
		if e.shadow&mask == 0 {
			return e.latch(pin, e.shadow|mask)
		}
	default:
		return fmt.Errorf("pcf8575 addr=0x%02X pin=%d: unknown direction %v", e.hw.addr, pin, dir)
	}

	if e.debug {
		log.Printf("pcf8575 addr=0x%02X pin=%d direction=%v outputs=0x%04X", e.hw.addr, pin, dir, e.outputs)
	}
	return nil
}

// WritePin drives an output pin low or releases it high.
func (e *Expander) WritePin(pin int, level pinctl.Level) error {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return fmt.Errorf("pcf8575 addr=0x%02X: %w", e.hw.addr, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mask := uint16(1 << pin)
	if e.outputs&mask == 0 {
		return fmt.Errorf("pcf8575 addr=0x%02X pin=%d: %w", e.hw.addr, pin, pinctl.ErrDirection)
	}

	next := e.shadow &^ mask
	if level == pinctl.High {
		next |= mask
	}
	return e.latch(pin, next)
}

// ReadPin reads the actual pin level from the port.
// For an output pin this is the level on the wire, which may differ from
// the latch if something external pulls it low.
func (e *Expander) ReadPin(pin int) (pinctl.Level, error) {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return pinctl.Low, fmt.Errorf("pcf8575 addr=0x%02X: %w", e.hw.addr, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.hw.read()
	if err != nil {
		return pinctl.Low, err
	}
	level := pinctl.Level(v&(1<<pin) != 0)

	if e.debug {
		log.Printf("pcf8575 addr=0x%02X read pin=%d: port=0x%04X level=%v (shadow=0x%04X)",
			e.hw.addr, pin, v, level, e.shadow)
	}
	return level, nil
}

// LastState returns the last latched level for a pin, or Low for a pin
// outside 0..15.
// IMPORTANT: this is not the same thing as the actual level on the pin.
func (e *Expander) LastState(pin int) pinctl.Level {
	if pinctl.CheckPin(pin, NumPins) != nil {
		return pinctl.Low
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return pinctl.Level(e.shadow&(1<<pin) != 0)
}

// latch writes next to the chip and commits it to the shadow on success.
// Caller holds e.mu.
func (e *Expander) latch(pin int, next uint16) error {
	if e.debug {
		log.Printf("pcf8575 addr=0x%02X latch pin=%d: shadow 0x%04X -> 0x%04X",
			e.hw.addr, pin, e.shadow, next)
	}
	if err := e.hw.write(next); err != nil {
		return fmt.Errorf("pcf8575 pin=%d: %w", pin, err)
	}
	e.shadow = next
	return nil
}
