// factory.go
//
// PCM1808 driver factory for reef-pi.
//
// The converter's control lines hang off a 16-bit I2C GPIO expander
// (PCF8575 or MCP23017). This file:
//
//   - Declares driver metadata and UI configuration parameters
//   - Validates configuration (address, expander type, pin wiring, mode, format)
//   - Builds the expander, the Device, and powers the chip up via BeginWith
//
// The resulting driver exposes a single DigitalOutput pin ("SCKI"):
// on => SCKI supplied (converting), off => power-down and reset.
//
package pcm1808

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/reef-pi/hal"
	"github.com/reef-pi/rpi/i2c"

	"github.com/epicfatigue/pcm1808/mcp23017"
	"github.com/epicfatigue/pcm1808/pcf8575"
	"github.com/epicfatigue/pcm1808/pinctl"
)

const (
	driverName = "pcm1808"

	paramAddress  = "Address"  // string, e.g. "0x20"
	paramExpander = "Expander" // "pcf8575" or "mcp23017"
	paramFMT      = "FMT"
	paramMD1      = "MD1"
	paramMD0      = "MD0"
	paramSCKIMask = "SCKIMask"
	paramLRCK     = "LRCK"
	paramBCK      = "BCK"
	paramDOUT     = "DOUT"
	paramMode     = "Mode"   // SLAVE, MASTER_512, MASTER_384, MASTER_256
	paramFormat   = "Format" // I2S, LEFT
	paramDebug    = "Debug"

	expanderPCF8575  = "pcf8575"
	expanderMCP23017 = "mcp23017"

	expanderPins = 16
)

// pin parameters in PinMap order, with their default expander pin.
var pinParams = []struct {
	name string
	def  int
}{
	{paramFMT, 0},
	{paramMD1, 1},
	{paramMD0, 2},
	{paramSCKIMask, 3},
	{paramLRCK, 4},
	{paramBCK, 5},
	{paramDOUT, 6},
}

type factory struct {
	meta       hal.Metadata
	parameters []hal.ConfigParameter
}

var (
	f    *factory
	once sync.Once
)

func Factory() hal.DriverFactory {
	once.Do(func() {
		params := []hal.ConfigParameter{
			{Name: paramAddress, Type: hal.String, Order: 0, Default: "0x20"},
			{Name: paramExpander, Type: hal.String, Order: 1, Default: expanderMCP23017},
		}
		for i, p := range pinParams {
			params = append(params, hal.ConfigParameter{Name: p.name, Type: hal.Integer, Order: 2 + i, Default: p.def})
		}
		params = append(params,
			hal.ConfigParameter{Name: paramMode, Type: hal.String, Order: 9, Default: DefaultMode.String()},
			hal.ConfigParameter{Name: paramFormat, Type: hal.String, Order: 10, Default: DefaultFormat.String()},
			hal.ConfigParameter{Name: paramDebug, Type: hal.Boolean, Order: 11, Default: false},
		)

		f = &factory{
			meta: hal.Metadata{
				Name:         driverName,
				Description:  "PCM1808 stereo ADC control via a PCF8575/MCP23017 expander. SCKI pin: on=converting, off=power-down/reset.",
				Capabilities: []hal.Capability{hal.DigitalOutput},
			},
			parameters: params,
		}
	})
	return f
}

func (f *factory) Metadata() hal.Metadata               { return f.meta }
func (f *factory) GetParameters() []hal.ConfigParameter { return f.parameters }

// parseAddr accepts "0x20" style hex or "32" style decimal.
// Returns a 7-bit I2C address byte.
func parseAddr(s string) (byte, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") {
		v, err = strconv.ParseUint(s[2:], 16, 8)
	} else {
		v, err = strconv.ParseUint(s, 10, 8)
	}
	if err != nil {
		return 0, err
	}
	if v > 127 {
		return 0, fmt.Errorf("address %d is not a 7-bit address", v)
	}
	return byte(v), nil
}

// convertToInt accepts JSON numbers (float64), Go ints and numeric strings.
func convertToInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

// config is the parsed form of the factory parameters.
type config struct {
	addr     byte
	expander string
	pins     PinMap
	mode     Mode
	format   Format
	debug    bool
}

// parse fills a config from params, starting from the defaults. Failures
// are keyed by parameter name for the UI.
func parse(params map[string]interface{}) (config, map[string][]string) {
	c := config{
		addr:     0x20,
		expander: expanderMCP23017,
		mode:     DefaultMode,
		format:   DefaultFormat,
	}
	fail := map[string][]string{}

	if v, ok := params[paramAddress]; ok {
		s, _ := v.(string)
		a, err := parseAddr(s)
		if err != nil {
			fail[paramAddress] = append(fail[paramAddress], "must be a valid I2C address like 0x20..0x27")
		} else {
			c.addr = a
		}
	}

	if v, ok := params[paramExpander]; ok {
		s, _ := v.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case expanderPCF8575, expanderMCP23017:
			c.expander = s
		default:
			fail[paramExpander] = append(fail[paramExpander], "must be pcf8575 or mcp23017")
		}
	}

	pins := make([]int, len(pinParams))
	for i, p := range pinParams {
		pins[i] = p.def
		v, ok := params[p.name]
		if !ok {
			continue
		}
		n, ok := convertToInt(v)
		if !ok || n < 0 || n >= expanderPins {
			fail[p.name] = append(fail[p.name], fmt.Sprintf("must be an expander pin 0..%d", expanderPins-1))
			continue
		}
		pins[i] = n
	}
	c.pins = PinMap{
		FMT: pins[0], MD1: pins[1], MD0: pins[2], SCKIMask: pins[3],
		LRCK: pins[4], BCK: pins[5], DOUT: pins[6],
	}
	// Both sides of a conflict get the failure so the UI marks each field.
	used := map[int]string{}
	for i, p := range pinParams {
		other, dup := used[pins[i]]
		if !dup {
			used[pins[i]] = p.name
			continue
		}
		fail[other] = append(fail[other], fmt.Sprintf("pin %d also used by %s", pins[i], p.name))
		fail[p.name] = append(fail[p.name], fmt.Sprintf("pin %d already used by %s", pins[i], other))
	}

	if v, ok := params[paramMode]; ok {
		s, _ := v.(string)
		m, err := ParseMode(s)
		if err != nil {
			fail[paramMode] = append(fail[paramMode], "must be SLAVE, MASTER_512, MASTER_384 or MASTER_256")
		} else {
			c.mode = m
		}
	}

	if v, ok := params[paramFormat]; ok {
		s, _ := v.(string)
		fm, err := ParseFormat(s)
		if err != nil {
			fail[paramFormat] = append(fail[paramFormat], "must be I2S or LEFT")
		} else {
			c.format = fm
		}
	}

	if v, ok := params[paramDebug]; ok {
		b, ok := v.(bool)
		if !ok {
			fail[paramDebug] = append(fail[paramDebug], "must be boolean")
		} else {
			c.debug = b
		}
	}

	return c, fail
}

func (f *factory) ValidateParameters(params map[string]interface{}) (bool, map[string][]string) {
	_, fail := parse(params)
	if len(fail) > 0 {
		return false, fail
	}
	return true, nil
}

// expander is what NewDriver needs from either expander driver.
type expander interface {
	pinctl.Pins
	Close() error
}

func (f *factory) NewDriver(params map[string]interface{}, bus interface{}) (hal.Driver, error) {
	c, fail := parse(params)
	if len(fail) > 0 {
		return nil, errors.New(hal.ToErrorString(fail))
	}

	i2cBus, ok := bus.(i2c.Bus)
	if !ok {
		return nil, fmt.Errorf("pcm1808: expected i2c.Bus, got %T", bus)
	}

	if c.debug {
		if b, err := json.MarshalIndent(params, "", "  "); err == nil {
			log.Printf("pcm1808 NewDriver params:\n%s", string(b))
		}
	}

	var (
		exp expander
		err error
	)
	switch c.expander {
	case expanderPCF8575:
		exp, err = pcf8575.NewExpander(c.addr, i2cBus, c.debug)
	default:
		exp, err = mcp23017.New(i2cBus, c.addr, c.debug)
	}
	if err != nil {
		return nil, fmt.Errorf("pcm1808: %s addr=0x%02X: %w", c.expander, c.addr, err)
	}

	dev, err := New(exp, c.pins, c.debug)
	if err != nil {
		return nil, err
	}
	if err := dev.BeginWith(c.mode, c.format); err != nil {
		return nil, fmt.Errorf("pcm1808 %s addr=0x%02X: %w", c.expander, c.addr, err)
	}

	d := &Driver{
		meta:     f.meta,
		dev:      dev,
		expander: exp,
		addr:     c.addr,
		debug:    c.debug,
	}
	d.scki = &sckiPin{driver: d}

	if c.debug {
		log.Printf("pcm1808 init %s addr=0x%02X pins=%+v mode=%v format=%v converting=%v",
			c.expander, c.addr, c.pins, dev.Mode(), dev.Format(), dev.IsConverting())
	}
	return d, nil
}
