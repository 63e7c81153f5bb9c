package pcm1808

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reef-pi/hal"

	"github.com/epicfatigue/pcm1808/internal/i2cfake"
)

func TestFactoryParameters(t *testing.T) {
	params := Factory().GetParameters()
	var names []string
	for _, p := range params {
		names = append(names, p.Name)
	}
	want := []string{"Address", "Expander", "FMT", "MD1", "MD0", "SCKIMask", "LRCK", "BCK", "DOUT", "Mode", "Format", "Debug"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("parameters (-want +got):\n%s", diff)
	}

	defaults := map[string]interface{}{}
	for _, p := range params {
		defaults[p.Name] = p.Default
	}
	if ok, fail := Factory().ValidateParameters(defaults); !ok {
		t.Errorf("defaults do not validate: %v", fail)
	}
}

func TestValidateParameters(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		key    string
	}{
		{"bad address", map[string]interface{}{"Address": "0xZZ"}, "Address"},
		{"address too large", map[string]interface{}{"Address": "200"}, "Address"},
		{"bad expander", map[string]interface{}{"Expander": "tca9555"}, "Expander"},
		{"pin out of range", map[string]interface{}{"FMT": 16}, "FMT"},
		{"fractional pin", map[string]interface{}{"MD1": 1.5}, "MD1"},
		{"duplicate pins", map[string]interface{}{"FMT": 3.0}, "FMT"},
		{"duplicate pins other side", map[string]interface{}{"FMT": 3.0}, "SCKIMask"},
		{"duplicate non-default pins", map[string]interface{}{"LRCK": 9.0, "DOUT": 9.0}, "DOUT"},
		{"bad mode", map[string]interface{}{"Mode": "MASTER_128"}, "Mode"},
		{"bad format", map[string]interface{}{"Format": "RIGHT"}, "Format"},
		{"debug not bool", map[string]interface{}{"Debug": "yes"}, "Debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, fail := Factory().ValidateParameters(tt.params)
			if ok {
				t.Fatal("validated, want failure")
			}
			if len(fail[tt.key]) == 0 {
				t.Errorf("no failure for %s: %v", tt.key, fail)
			}
		})
	}
}

func TestNewDriverMCP23017(t *testing.T) {
	bus := i2cfake.New()
	d, err := Factory().NewDriver(map[string]interface{}{
		"Address":  "0x21",
		"Expander": "mcp23017",
		"Mode":     "SLAVE",
		"Format":   "LEFT",
	}, bus)
	if err != nil {
		t.Fatal(err)
	}
	drv := d.(*Driver)

	// All seven control pins on GPA are outputs.
	if diff := cmp.Diff([]byte{0x80}, bus.Regs[0x00]); diff != "" {
		t.Errorf("IODIRA (-want +got):\n%s", diff)
	}
	// FMT(0)=high, MD1(1)=low, MD0(2)=low, SCKIMask(3)=high.
	if diff := cmp.Diff([]byte{0x09}, bus.Regs[0x14]); diff != "" {
		t.Errorf("OLATA (-want +got):\n%s", diff)
	}
	if dev := drv.Device(); dev.Mode() != Slave || dev.Format() != LeftJustified || !dev.IsConverting() {
		t.Errorf("device = (%v, %v, %v)", dev.Mode(), dev.Format(), dev.IsConverting())
	}

	pins := drv.DigitalOutputPins()
	if len(pins) != 1 {
		t.Fatalf("%d output pins, want 1", len(pins))
	}
	scki := pins[0]
	if !scki.LastState() {
		t.Error("SCKI LastState = false after init")
	}
	if err := scki.Write(false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x01}, bus.Regs[0x14]); diff != "" {
		t.Errorf("OLATA after halt (-want +got):\n%s", diff)
	}
	if scki.LastState() {
		t.Error("SCKI LastState = true after Write(false)")
	}
	if err := scki.Write(true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x09}, bus.Regs[0x14]); diff != "" {
		t.Errorf("OLATA after resume (-want +got):\n%s", diff)
	}

	if _, err := drv.DigitalOutputPin(1); err == nil {
		t.Error("DigitalOutputPin(1) succeeded")
	}
	if got, err := drv.Pins(hal.DigitalOutput); err != nil || len(got) != 1 {
		t.Errorf("Pins(DigitalOutput) = %v, %v", got, err)
	}
	if _, err := drv.Pins(hal.AnalogInput); err == nil {
		t.Error("Pins(AnalogInput) succeeded")
	}

	if err := drv.Close(); err != nil {
		t.Fatal(err)
	}
	if drv.Device().IsConverting() {
		t.Error("Close left the chip converting")
	}
}

func TestNewDriverPCF8575(t *testing.T) {
	bus := i2cfake.New()
	d, err := Factory().NewDriver(map[string]interface{}{
		"Expander": "pcf8575",
		"SCKIMask": 15.0,
		"DOUT":     3.0,
		"Debug":    true,
	}, bus)
	if err != nil {
		t.Fatal(err)
	}

	// Defaults: MASTER_256 keeps MD1/MD0 released, I2S drives FMT(0) low,
	// SCKIMask(15) stays released.
	want := i2cfake.Write{Addr: 0x20, Reg: -1, Data: []byte{0xFE, 0xFF}}
	if diff := cmp.Diff(want, bus.Last()); diff != "" {
		t.Errorf("last write (-want +got):\n%s", diff)
	}

	if err := d.(*Driver).scki.Write(false); err != nil {
		t.Fatal(err)
	}
	want.Data = []byte{0xFE, 0x7F}
	if diff := cmp.Diff(want, bus.Last()); diff != "" {
		t.Errorf("after halt (-want +got):\n%s", diff)
	}
}

func TestNewDriverErrors(t *testing.T) {
	if _, err := Factory().NewDriver(map[string]interface{}{}, "not a bus"); err == nil {
		t.Error("NewDriver with wrong resource succeeded")
	}
	if _, err := Factory().NewDriver(map[string]interface{}{"Mode": "x"}, i2cfake.New()); err == nil {
		t.Error("NewDriver with bad params succeeded")
	}

	bus := i2cfake.New()
	bus.Fail = true
	if _, err := Factory().NewDriver(map[string]interface{}{}, bus); !errors.Is(err, i2cfake.ErrInjected) {
		t.Errorf("NewDriver on failing bus: err = %v, want ErrInjected", err)
	}

	// Bus dies after the expander init (5 register writes) and the seven
	// IODIR writes, on the SCKI halt.
	bus = i2cfake.New()
	bus.Fail, bus.FailAfter = true, 12
	if _, err := Factory().NewDriver(map[string]interface{}{}, bus); !errors.Is(err, i2cfake.ErrInjected) {
		t.Errorf("NewDriver with failing begin: err = %v, want ErrInjected", err)
	}
}

// sckiSuppliedOnlyAtEnd checks that every latch value before the last one
// has the SCKIMask bit clear, the last one has it set, and that nothing but
// the power-on latch was written before the first halt.
func sckiSuppliedOnlyAtEnd(t *testing.T, latches []uint16, bit uint, powerOn uint16) {
	t.Helper()
	if len(latches) == 0 {
		t.Fatal("no latch writes")
	}
	halted := false
	for i, v := range latches[:len(latches)-1] {
		if v&(1<<bit) == 0 {
			halted = true
			continue
		}
		if halted {
			t.Errorf("write %d = 0x%04X: SCKI supplied again before configuration finished", i, v)
		} else if v != powerOn {
			t.Errorf("write %d = 0x%04X: configured while SCKI supplied", i, v)
		}
	}
	if !halted {
		t.Errorf("SCKI never halted: %s", hexList(latches))
	}
	if last := latches[len(latches)-1]; last&(1<<bit) == 0 {
		t.Errorf("final write 0x%04X leaves SCKI halted", last)
	}
}

func hexList(vs []uint16) string {
	s := ""
	for _, v := range vs {
		s += fmt.Sprintf(" 0x%04X", v)
	}
	return s
}

func TestNewDriverPCF8575PowerUpOrder(t *testing.T) {
	for _, mode := range []string{"SLAVE", "MASTER_512", "MASTER_384", "MASTER_256"} {
		t.Run(mode, func(t *testing.T) {
			bus := i2cfake.New()
			if _, err := Factory().NewDriver(map[string]interface{}{
				"Expander": "pcf8575",
				"SCKIMask": 15.0,
				"DOUT":     3.0,
				"Mode":     mode,
			}, bus); err != nil {
				t.Fatal(err)
			}
			var latches []uint16
			for _, w := range bus.Writes {
				latches = append(latches, uint16(w.Data[0])|uint16(w.Data[1])<<8)
			}
			sckiSuppliedOnlyAtEnd(t, latches, 15, 0xFFFF)
		})
	}
}

func TestNewDriverMCP23017PowerUpOrder(t *testing.T) {
	for _, mode := range []string{"SLAVE", "MASTER_512", "MASTER_384", "MASTER_256"} {
		t.Run(mode, func(t *testing.T) {
			bus := i2cfake.New()
			if _, err := Factory().NewDriver(map[string]interface{}{
				"Mode":   mode,
				"Format": "LEFT",
			}, bus); err != nil {
				t.Fatal(err)
			}
			// OLATA writes only; pins 0..6 all sit on port A.
			var latches []uint16
			for _, w := range bus.Writes {
				if w.Reg == 0x14 {
					latches = append(latches, uint16(w.Data[0]))
				}
			}
			sckiSuppliedOnlyAtEnd(t, latches, 3, 0x00)
		})
	}
}

func TestSCKIPinConcurrentUse(t *testing.T) {
	bus := i2cfake.New()
	d, err := Factory().NewDriver(map[string]interface{}{}, bus)
	if err != nil {
		t.Fatal(err)
	}
	scki := d.(*Driver).scki

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := scki.Write(on); err != nil {
					t.Error(err)
					return
				}
				_ = scki.LastState()
				on = !on
			}
		}(i%2 == 0)
	}
	wg.Wait()

	latched := bus.Regs[0x14][0]&(1<<3) != 0
	if got := scki.LastState(); got != latched {
		t.Errorf("LastState = %v, OLATA SCKI bit = %v", got, latched)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if scki.LastState() || bus.Regs[0x14][0]&(1<<3) != 0 {
		t.Error("Close left SCKI supplied")
	}
}
