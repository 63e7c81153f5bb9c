// device.go
//
// Device drives one PCM1808 through a pinctl.Pins capability.
//
// Two independent state axes:
//   - configuration: (Mode, Format), default (Master256, I2S)
//   - power: SCKI supplied (converting) or halted (powered down, held in reset)
//
// Every call writes the pins before it returns. Nothing here sleeps: the
// chip's reset, resync and fade delays (timing.go) elapse on their own and
// callers that need valid DOUT wait for them.
//
// A Device is not safe for concurrent use; it assumes one control thread
// owns its seven pins.
//
package pcm1808

import (
	"errors"
	"fmt"
	"log"

	"github.com/epicfatigue/pcm1808/pinctl"
)

// PinMap holds the pin numbers (on the pinctl.Pins provider) wired to the chip.
type PinMap struct {
	FMT int // PCM1808 pin 12
	MD1 int // PCM1808 pin 11
	MD0 int // PCM1808 pin 10

	// SCKIMask feeds an AND gate with the clock generator; low halts SCKI.
	SCKIMask int

	LRCK int // PCM1808 pin 7
	BCK  int // PCM1808 pin 8
	DOUT int // PCM1808 pin 9
}

type namedPin struct {
	name string
	pin  int
}

func (p PinMap) list() []namedPin {
	return []namedPin{
		{"FMT", p.FMT},
		{"MD1", p.MD1},
		{"MD0", p.MD0},
		{"SCKIMask", p.SCKIMask},
		{"LRCK", p.LRCK},
		{"BCK", p.BCK},
		{"DOUT", p.DOUT},
	}
}

// Validate checks that all seven pins are non-negative and distinct.
func (p PinMap) Validate() error {
	seen := map[int]string{}
	var errs []error
	for _, np := range p.list() {
		if np.pin < 0 {
			errs = append(errs, fmt.Errorf("%s=%d: %w", np.name, np.pin, pinctl.ErrInvalidPin))
			continue
		}
		if other, dup := seen[np.pin]; dup {
			errs = append(errs, fmt.Errorf("%s and %s both use pin %d", other, np.name, np.pin))
			continue
		}
		seen[np.pin] = np.name
	}
	return errors.Join(errs...)
}

type Device struct {
	bus  pinctl.Pins
	pins PinMap

	mode       Mode
	format     Format
	converting bool
	configured bool

	debug bool
}

// New returns an unconfigured Device; call Begin or BeginWith before use.
// The pins are fixed for the Device's lifetime.
func New(bus pinctl.Pins, pins PinMap, debug bool) (*Device, error) {
	if bus == nil {
		return nil, errors.New("pcm1808: nil pin provider")
	}
	if err := pins.Validate(); err != nil {
		return nil, fmt.Errorf("pcm1808: pins: %w", err)
	}
	return &Device{
		bus:    bus,
		pins:   pins,
		mode:   DefaultMode,
		format: DefaultFormat,
		debug:  debug,
	}, nil
}

// Begin is BeginWith(DefaultMode, DefaultFormat).
func (d *Device) Begin() error {
	return d.BeginWith(DefaultMode, DefaultFormat)
}

// BeginWith makes every pin an output, halts SCKI, applies mode and
// format, then supplies SCKI so the chip powers up into a stable
// configuration. Expanders that come up with every pin high (PCF8575)
// would otherwise clock the chip through intermediate modes.
func (d *Device) BeginWith(mode Mode, format Format) error {
	if !mode.Valid() {
		return fmt.Errorf("pcm1808: begin: unknown %v", mode)
	}
	if !format.Valid() {
		return fmt.Errorf("pcm1808: begin: unknown %v", format)
	}

	for _, np := range d.pins.list() {
		if err := d.bus.SetPinDirection(np.pin, pinctl.Output); err != nil {
			return fmt.Errorf("pcm1808: begin: %s (pin %d) output: %w", np.name, np.pin, err)
		}
	}
	d.configured = true

	if err := d.PowerDownAndReset(); err != nil {
		return fmt.Errorf("pcm1808: begin: %w", err)
	}
	if err := d.SelectMode(mode); err != nil {
		return fmt.Errorf("pcm1808: begin: %w", err)
	}
	if err := d.SelectFormat(format); err != nil {
		return fmt.Errorf("pcm1808: begin: %w", err)
	}
	if err := d.Resume(); err != nil {
		return fmt.Errorf("pcm1808: begin: %w", err)
	}

	d.dbg("begin mode=%v format=%v converting=%v", d.mode, d.format, d.converting)
	return nil
}

// SelectMode writes MD1 then MD0. If a write fails the previous Mode is
// kept, but MD1 may already hold the new level.
func (d *Device) SelectMode(mode Mode) error {
	md1, md0, err := mode.Levels()
	if err != nil {
		return err
	}
	if err := d.write("MD1", d.pins.MD1, md1); err != nil {
		return fmt.Errorf("pcm1808: select mode %v: %w", mode, err)
	}
	if err := d.write("MD0", d.pins.MD0, md0); err != nil {
		return fmt.Errorf("pcm1808: select mode %v: %w", mode, err)
	}
	d.mode = mode
	return nil
}

// SelectFormat writes FMT.
func (d *Device) SelectFormat(format Format) error {
	level, err := format.Level()
	if err != nil {
		return err
	}
	if err := d.write("FMT", d.pins.FMT, level); err != nil {
		return fmt.Errorf("pcm1808: select format %v: %w", format, err)
	}
	d.format = format
	return nil
}

// PowerDownAndReset halts SCKI. The chip enters power-down and reset at
// least ResetAssertDelay later; DOUT is forced to zero while halted.
func (d *Device) PowerDownAndReset() error {
	if err := d.write("SCKIMask", d.pins.SCKIMask, pinctl.Low); err != nil {
		return fmt.Errorf("pcm1808: power down: %w", err)
	}
	d.converting = false
	return nil
}

// Resume supplies SCKI. DOUT becomes valid after SettleTime; BCK and LRCK
// must resync within ClockSyncWindow or SCKI should be halted again.
func (d *Device) Resume() error {
	if err := d.write("SCKIMask", d.pins.SCKIMask, pinctl.High); err != nil {
		return fmt.Errorf("pcm1808: resume: %w", err)
	}
	d.converting = true
	return nil
}

func (d *Device) Mode() Mode     { return d.mode }
func (d *Device) Format() Format { return d.format }
func (d *Device) Pins() PinMap   { return d.pins }

// IsConverting reports whether SCKI is being supplied.
func (d *Device) IsConverting() bool { return d.converting }

// Configured reports whether Begin/BeginWith has set the pin directions.
func (d *Device) Configured() bool { return d.configured }

func (d *Device) write(name string, pin int, level pinctl.Level) error {
	d.dbg("%s (pin %d) -> %v", name, pin, level)
	if err := d.bus.WritePin(pin, level); err != nil {
		return fmt.Errorf("%s (pin %d) %v: %w", name, pin, level, err)
	}
	return nil
}

func (d *Device) dbg(format string, args ...any) {
	if !d.debug {
		return
	}
	log.Printf("pcm1808: %s", fmt.Sprintf(format, args...))
}
