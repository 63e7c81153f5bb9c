// hal.go
//
// reef-pi HAL glue for the PCM1808.
//
// The only thing reef-pi gets to switch is the SCKI gate, as a DigitalOutput
// pin: Write(true) resumes conversion, Write(false) powers down and resets.
// Mode and format are fixed by the driver configuration.
//
// Closing the driver halts SCKI before releasing the expander, so removing
// the driver from reef-pi leaves the chip in reset. Device itself never
// powers down on its own.
//
package pcm1808

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/reef-pi/hal"
)

// Driver is the reef-pi driver instance for one PCM1808.
type Driver struct {
	// mu serializes SCKI writes, state reads and Close; reef-pi may call
	// them from different goroutines.
	mu sync.Mutex

	meta     hal.Metadata
	dev      *Device
	expander expander
	scki     *sckiPin

	// I2C address (for better logs)
	addr  byte
	debug bool
}

// Device returns the controller, for callers that need mode/format access.
// Device is not safe for concurrent use; callers must not race the SCKI pin.
func (d *Driver) Device() *Device { return d.dev }

func (d *Driver) Metadata() hal.Metadata { return d.meta }

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if err := d.dev.PowerDownAndReset(); err != nil {
		errs = append(errs, err)
	}
	if err := d.expander.Close(); err != nil {
		errs = append(errs, err)
	}
	if d.debug {
		log.Printf("pcm1808 addr=0x%02X close converting=%v", d.addr, d.dev.IsConverting())
	}
	return errors.Join(errs...)
}

func (d *Driver) DigitalOutputPins() []hal.DigitalOutputPin {
	return []hal.DigitalOutputPin{d.scki}
}

func (d *Driver) DigitalOutputPin(n int) (hal.DigitalOutputPin, error) {
	if n != d.scki.Number() {
		return nil, fmt.Errorf("pcm1808 addr=0x%02X: invalid pin %d", d.addr, n)
	}
	return d.scki, nil
}

func (d *Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	switch cap {
	case hal.DigitalOutput:
		return []hal.Pin{d.scki}, nil
	default:
		return nil, fmt.Errorf("pcm1808 addr=0x%02X: unsupported capability: %s", d.addr, cap.String())
	}
}

// sckiPin is the SCKI gate seen as an outlet.
type sckiPin struct {
	driver *Driver
}

func (p *sckiPin) Name() string { return "PCM1808:SCKI" }
func (p *sckiPin) Number() int  { return 0 }
func (p *sckiPin) Close() error { return nil }

func (p *sckiPin) Write(on bool) error {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()

	if p.driver.debug {
		log.Printf("pcm1808 addr=0x%02X SCKI write on=%v", p.driver.addr, on)
	}
	if on {
		return p.driver.dev.Resume()
	}
	return p.driver.dev.PowerDownAndReset()
}

func (p *sckiPin) LastState() bool {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	return p.driver.dev.IsConverting()
}
