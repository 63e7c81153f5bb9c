// pcm1808.go
//
// Configuration model for the TI PCM1808 single-ended 24-bit stereo ADC.
//
// The chip has no control bus. It is configured entirely by pin levels:
//
//   MD1 MD0   interface mode
//   low low   slave (256/384/512 fs autodetect)
//   low high  master 512 fs
//   high low  master 384 fs
//   high high master 256 fs
//
//   FMT       audio data format
//   low       I2S, 24-bit
//   high      left-justified, 24-bit
//
// and it is powered down / reset by halting SCKI. On the boards this driver
// targets SCKI comes from a clock generator through an AND gate whose other
// input is the "SCKI mask" pin, so driving that pin low halts the clock.
//
// Datasheet: http://www.ti.com/lit/gpn/pcm1808
//
package pcm1808

import (
	"fmt"
	"strings"

	"github.com/epicfatigue/pcm1808/pinctl"
)

// Mode is the interface mode selected by MD1/MD0.
type Mode uint8

const (
	Slave Mode = iota
	Master512
	Master384
	Master256
)

// Format is the audio data format selected by FMT.
type Format uint8

const (
	I2S Format = iota
	LeftJustified
)

const (
	DefaultMode   = Master256
	DefaultFormat = I2S
)

// Modes and Formats list every value, in pin-pattern order.
var (
	Modes   = []Mode{Slave, Master512, Master384, Master256}
	Formats = []Format{I2S, LeftJustified}
)

type modeInfo struct {
	name     string
	md1, md0 pinctl.Level
	ratio    int // SCKI/fs; 0 when autodetected
}

var modeTable = map[Mode]modeInfo{
	Slave:     {name: "SLAVE", md1: pinctl.Low, md0: pinctl.Low},
	Master512: {name: "MASTER_512", md1: pinctl.Low, md0: pinctl.High, ratio: 512},
	Master384: {name: "MASTER_384", md1: pinctl.High, md0: pinctl.Low, ratio: 384},
	Master256: {name: "MASTER_256", md1: pinctl.High, md0: pinctl.High, ratio: 256},
}

type formatInfo struct {
	name  string
	level pinctl.Level
}

var formatTable = map[Format]formatInfo{
	I2S:           {name: "I2S", level: pinctl.Low},
	LeftJustified: {name: "LEFT", level: pinctl.High},
}

// Valid reports whether m is one of the four modes.
func (m Mode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// Levels returns the MD1 and MD0 levels for m.
func (m Mode) Levels() (md1, md0 pinctl.Level, err error) {
	info, ok := modeTable[m]
	if !ok {
		return pinctl.Low, pinctl.Low, fmt.Errorf("pcm1808: unknown %v", m)
	}
	return info.md1, info.md0, nil
}

// IsMaster reports whether the chip drives BCK and LRCK itself.
func (m Mode) IsMaster() bool { return m.Valid() && m != Slave }

// SystemClockRatio is SCKI/fs in master modes, 0 in slave mode where the
// chip detects 256, 384 or 512 fs on its own.
func (m Mode) SystemClockRatio() int { return modeTable[m].ratio }

func (m Mode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid reports whether f is one of the two formats.
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

// Level returns the FMT level for f.
func (f Format) Level() (pinctl.Level, error) {
	info, ok := formatTable[f]
	if !ok {
		return pinctl.Low, fmt.Errorf("pcm1808: unknown %v", f)
	}
	return info.level, nil
}

func (f Format) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseMode accepts the mode names ("SLAVE", "MASTER_512", ...) in any
// case, with '-' or ' ' in place of '_'.
func ParseMode(s string) (Mode, error) {
	key := normalizeName(s)
	for _, m := range Modes {
		if modeTable[m].name == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("pcm1808: unknown mode %q (want SLAVE, MASTER_512, MASTER_384 or MASTER_256)", s)
}

// ParseFormat accepts "I2S" and "LEFT" (also "LEFT_JUSTIFIED").
func ParseFormat(s string) (Format, error) {
	key := normalizeName(s)
	if key == "LEFT_JUSTIFIED" {
		return LeftJustified, nil
	}
	for _, f := range Formats {
		if formatTable[f].name == key {
			return f, nil
		}
	}
	return 0, fmt.Errorf("pcm1808: unknown format %q (want I2S or LEFT)", s)
}

func normalizeName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
