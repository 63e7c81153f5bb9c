// pinctl.go
//
// Pin-access capability shared by the expander drivers and the chip drivers
// that sit on top of them.
//
// A chip driver (for example pcm1808) never talks I2C itself. It is handed a
// Pins value and only ever asks for two things: make this pin an output, and
// drive this pin high or low. Which expander (or host GPIO block) answers is
// decided by whoever wires the driver together.
//
package pinctl

import (
	"errors"
	"fmt"
)

// Direction of a pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Level is the logic level of a pin. High is true.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

var (
	// ErrInvalidPin is returned for a pin number the provider does not have.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrDirection is returned when a level is written to a pin that is not
	// configured as an output.
	ErrDirection = errors.New("pin is not an output")
)

// Pins is the capability consumed by chip drivers.
//
// Implementations report failures (invalid pin, direction mismatch, bus
// errors) through the returned error and must not retry on their own.
type Pins interface {
	SetPinDirection(pin int, dir Direction) error
	WritePin(pin int, level Level) error
}

// CheckPin returns ErrInvalidPin (wrapped with the pin number) unless
// 0 <= pin < width.
func CheckPin(pin, width int) error {
	if pin < 0 || pin >= width {
		return fmt.Errorf("pin=%d (valid 0..%d): %w", pin, width-1, ErrInvalidPin)
	}
	return nil
}
