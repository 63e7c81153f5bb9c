// mcp23017.go
//
// MCP23017 16-bit I2C GPIO expander, as pinctl.Pins.
//
// Unlike the PCF8575 this chip has real direction registers:
//   - IODIR bit=1 => input, bit=0 => output (power-on: all inputs)
//   - OLAT  holds the output latch
//   - GPIO  reads the pin levels
//
// The driver forces IOCON.BANK=0 at startup, so A/B registers are paired
// (IODIRA=0x00, IODIRB=0x01, ...). Pins are numbered the Arduino way:
// 0..7 => GPA0..GPA7, 8..15 => GPB0..GPB7.
//
// IODIR and OLAT are shadowed so a single-pin change is one register write.
//
package mcp23017

import (
	"fmt"
	"log"
	"sync"

	"github.com/epicfatigue/pcm1808/pinctl"
	"github.com/reef-pi/rpi/i2c"
)

const (
	NumPins = 16

	// BaseAddress is the address with A2..A0 tied low; the chip answers
	// on BaseAddress..MaxAddress.
	BaseAddress byte = 0x20
	MaxAddress  byte = 0x27
)

// Registers with IOCON.BANK=0.
const (
	regIODIRA = 0x00
	regIODIRB = 0x01
	regIOCON  = 0x0A
	regGPIOA  = 0x12
	regGPIOB  = 0x13
	regOLATA  = 0x14
	regOLATB  = 0x15
)

// Dev is one MCP23017 at one I2C address.
type Dev struct {
	bus  i2c.Bus
	addr byte

	mu    sync.Mutex
	iodir uint16
	olat  uint16

	debug bool
}

// ResolveAddress accepts either a full 7-bit address (0x20..0x27) or the
// A2..A0 strap value (0..7).
func ResolveAddress(a byte) (byte, error) {
	if a <= 7 {
		a += BaseAddress
	}
	if a < BaseAddress || a > MaxAddress {
		return 0, fmt.Errorf("mcp23017: address 0x%02X out of range 0x%02X..0x%02X", a, BaseAddress, MaxAddress)
	}
	return a, nil
}

// New resets the chip's configuration to the power-on layout (BANK=0,
// every pin an input, latches low) and returns the device.
func New(bus i2c.Bus, address byte, debug bool) (*Dev, error) {
	addr, err := ResolveAddress(address)
	if err != nil {
		return nil, err
	}
	d := &Dev{bus: bus, addr: addr, iodir: 0xFFFF, debug: debug}

	// Only takes effect if the chip is still in BANK=0, which is the power-on default.
	if err := d.writeReg(regIOCON, 0x00); err != nil {
		return nil, fmt.Errorf("mcp23017 addr=0x%02X init IOCON: %w", addr, err)
	}
	for _, w := range []struct {
		reg byte
		v   byte
	}{
		{regIODIRA, 0xFF}, {regIODIRB, 0xFF},
		{regOLATA, 0x00}, {regOLATB, 0x00},
	} {
		if err := d.writeReg(w.reg, w.v); err != nil {
			return nil, fmt.Errorf("mcp23017 addr=0x%02X init reg=0x%02X: %w", addr, w.reg, err)
		}
	}

	if debug {
		log.Printf("mcp23017 init addr=0x%02X iodir=0x%04X olat=0x%04X", addr, d.iodir, d.olat)
	}
	return d, nil
}

func (d *Dev) Addr() byte   { return d.addr }
func (d *Dev) Close() error { return nil }

// SetPinDirection writes the pin's IODIR bit.
func (d *Dev) SetPinDirection(pin int, dir pinctl.Direction) error {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return fmt.Errorf("mcp23017 addr=0x%02X: %w", d.addr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.iodir
	switch dir {
	case pinctl.Output:
		next &^= 1 << pin
	case pinctl.Input:
		next |= 1 << pin
	default:
		return fmt.Errorf("mcp23017 addr=0x%02X pin=%d: unknown direction %v", d.addr, pin, dir)
	}

	reg, b := portByte(pin, regIODIRA, regIODIRB, next)
	if err := d.writeReg(reg, b); err != nil {
		return fmt.Errorf("mcp23017 addr=0x%02X pin=%d direction=%v: %w", d.addr, pin, dir, err)
	}
	if d.debug {
		log.Printf("mcp23017 addr=0x%02X pin=%d direction=%v iodir 0x%04X -> 0x%04X", d.addr, pin, dir, d.iodir, next)
	}
	d.iodir = next
	return nil
}

// WritePin writes the pin's OLAT bit. The pin must be an output.
func (d *Dev) WritePin(pin int, level pinctl.Level) error {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return fmt.Errorf("mcp23017 addr=0x%02X: %w", d.addr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.iodir&(1<<pin) != 0 {
		return fmt.Errorf("mcp23017 addr=0x%02X pin=%d: %w", d.addr, pin, pinctl.ErrDirection)
	}

	next := d.olat &^ (1 << pin)
	if level == pinctl.High {
		next |= 1 << pin
	}

	reg, b := portByte(pin, regOLATA, regOLATB, next)
	if err := d.writeReg(reg, b); err != nil {
		return fmt.Errorf("mcp23017 addr=0x%02X pin=%d level=%v: %w", d.addr, pin, level, err)
	}
	if d.debug {
		log.Printf("mcp23017 addr=0x%02X pin=%d level=%v olat 0x%04X -> 0x%04X", d.addr, pin, level, d.olat, next)
	}
	d.olat = next
	return nil
}

// ReadPin reads the pin level from the GPIO register.
func (d *Dev) ReadPin(pin int) (pinctl.Level, error) {
	if err := pinctl.CheckPin(pin, NumPins); err != nil {
		return pinctl.Low, fmt.Errorf("mcp23017 addr=0x%02X: %w", d.addr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	reg := byte(regGPIOA)
	bit := uint(pin)
	if pin >= 8 {
		reg = regGPIOB
		bit -= 8
	}
	b := make([]byte, 1)
	if err := d.bus.ReadFromReg(d.addr, reg, b); err != nil {
		return pinctl.Low, fmt.Errorf("mcp23017 addr=0x%02X read pin=%d: %w", d.addr, pin, err)
	}
	return pinctl.Level(b[0]&(1<<bit) != 0), nil
}

// LastState returns the latched output level for a pin. Invalid pins
// read as Low.
func (d *Dev) LastState(pin int) pinctl.Level {
	if pinctl.CheckPin(pin, NumPins) != nil {
		return pinctl.Low
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return pinctl.Level(d.olat&(1<<pin) != 0)
}

func (d *Dev) writeReg(reg, v byte) error {
	return d.bus.WriteToReg(d.addr, reg, []byte{v})
}

// portByte picks the A or B register for pin and the matching half of v.
func portByte(pin int, regA, regB byte, v uint16) (byte, byte) {
	if pin < 8 {
		return regA, byte(v)
	}
	return regB, byte(v >> 8)
}
