// timing.go
//
// Datasheet timing, as data. The driver never waits on any of these; they
// are for callers deciding when DOUT can be trusted.
//
// Power-down: halting SCKI with a fixed level triggers power-down and reset
// within ResetAssertDelay. DOUT is forced to zero while halted.
//
// Resume: after SCKI is supplied again, reset is released after 1024 SCKI
// cycles, and DOUT is valid 8960/fs after that. Fade-in then takes 48/fin,
// or 48/fs if no zero crossing shows up within 8192/fs.
//
// BCK and LRCK must resync with SCKI within 4480/fs of resume; otherwise SCKI
// should be masked again until they do.
//
package pcm1808

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// ResetAssertDelay is the minimum time from SCKI halt to power-down/reset.
const ResetAssertDelay = 4 * time.Microsecond

// Cycle counts from the datasheet.
const (
	FadeCycles        = 48
	ZeroCrossCycles   = 8192
	ResetReleaseSCKI  = 1024
	OutputValidCycles = 8960
	ClockSyncCycles   = 4480
)

// SamplingRates are the fs values the PCM1808 is specified for.
var SamplingRates = []physic.Frequency{
	8 * physic.KiloHertz,
	16 * physic.KiloHertz,
	32 * physic.KiloHertz,
	44100 * physic.Hertz,
	48 * physic.KiloHertz,
	64 * physic.KiloHertz,
	88200 * physic.Hertz,
	96 * physic.KiloHertz,
}

// cycles returns the duration of n periods of f, 0 if f is not positive.
func cycles(n int64, f physic.Frequency) time.Duration {
	if f <= 0 {
		return 0
	}
	// physic.Frequency counts µHz.
	return time.Duration(float64(n) * float64(time.Second) * float64(physic.Hertz) / float64(f))
}

// FadeTime is the fade-in/out time when the input has zero crossings: 48/fin.
func FadeTime(fin physic.Frequency) time.Duration { return cycles(FadeCycles, fin) }

// FadeTimeout bounds the fade when no zero crossing occurs: 48/fs.
func FadeTimeout(fs physic.Frequency) time.Duration { return cycles(FadeCycles, fs) }

// ZeroCrossWindow is how long the chip waits for a zero crossing: 8192/fs.
func ZeroCrossWindow(fs physic.Frequency) time.Duration { return cycles(ZeroCrossCycles, fs) }

// ResetReleaseDelay is the time from SCKI resume to reset release:
// 1024 SCKI periods.
func ResetReleaseDelay(scki physic.Frequency) time.Duration {
	return cycles(ResetReleaseSCKI, scki)
}

// OutputValidDelay is the time from reset release to valid DOUT: 8960/fs.
func OutputValidDelay(fs physic.Frequency) time.Duration { return cycles(OutputValidCycles, fs) }

// ClockSyncWindow is how long BCK/LRCK have to resync after resume: 4480/fs.
func ClockSyncWindow(fs physic.Frequency) time.Duration { return cycles(ClockSyncCycles, fs) }

// SystemClock returns SCKI for mode at fs (256, 384 or 512 fs). Slave mode
// autodetects the ratio, so it returns 0.
func SystemClock(mode Mode, fs physic.Frequency) physic.Frequency {
	return physic.Frequency(mode.SystemClockRatio()) * fs
}

// SettleTime is the worst case from Resume to valid, faded-in output:
// ResetReleaseDelay + OutputValidDelay + FadeTimeout.
func SettleTime(scki, fs physic.Frequency) time.Duration {
	return ResetReleaseDelay(scki) + OutputValidDelay(fs) + FadeTimeout(fs)
}
