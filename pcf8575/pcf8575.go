// pcf8575.go
//
// Wire format of the PCF8575 port. There is no register map: a 2-byte write
// sets the output latch of all 16 lines and a 2-byte read samples them, low
// byte (P00..P07) first in both directions.
//
// A latch bit of 1 leaves the line on its weak pull-up, 0 sinks it.
//
package pcf8575

import (
	"fmt"

	"github.com/reef-pi/rpi/i2c"
)

const (
	// NumPins is the width of the port.
	NumPins = 16

	// DefaultAddress is the address with A2..A0 tied low.
	DefaultAddress byte = 0x20

	// allHigh is the power-on latch: every line on its pull-up.
	allHigh uint16 = 0xFFFF
)

// port is one chip on a shared bus. It holds no state; the bus is owned by
// whoever built the expander.
type port struct {
	addr byte
	bus  i2c.Bus
}

func (p port) write(latch uint16) error {
	if err := p.bus.WriteBytes(p.addr, []byte{byte(latch), byte(latch >> 8)}); err != nil {
		return fmt.Errorf("pcf8575 addr=0x%02X: write 0x%04X: %w", p.addr, latch, err)
	}
	return nil
}

func (p port) read() (uint16, error) {
	b, err := p.bus.ReadBytes(p.addr, 2)
	switch {
	case err != nil:
		return 0, fmt.Errorf("pcf8575 addr=0x%02X: read: %w", p.addr, err)
	case len(b) != 2:
		return 0, fmt.Errorf("pcf8575 addr=0x%02X: read %d bytes, want 2", p.addr, len(b))
	}
	return uint16(b[1])<<8 | uint16(b[0]), nil
}
