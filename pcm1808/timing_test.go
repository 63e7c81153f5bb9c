package pcm1808

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func TestTiming(t *testing.T) {
	fs := 64 * physic.KiloHertz
	scki := SystemClock(Master256, fs)

	if scki != 16384*physic.KiloHertz {
		t.Fatalf("SystemClock(MASTER_256, 64kHz) = %v, want 16.384MHz", scki)
	}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"FadeTimeout", FadeTimeout(fs), 750 * time.Microsecond},
		{"FadeTime 1kHz", FadeTime(physic.KiloHertz), 48 * time.Millisecond},
		{"ZeroCrossWindow", ZeroCrossWindow(fs), 128 * time.Millisecond},
		{"ResetReleaseDelay", ResetReleaseDelay(scki), 62500 * time.Nanosecond},
		{"OutputValidDelay", OutputValidDelay(fs), 140 * time.Millisecond},
		{"ClockSyncWindow", ClockSyncWindow(fs), 70 * time.Millisecond},
		{"SettleTime", SettleTime(scki, fs), 62500*time.Nanosecond + 140*time.Millisecond + 750*time.Microsecond},
		{"FadeTimeout 48kHz", FadeTimeout(48 * physic.KiloHertz), time.Millisecond},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestTimingZeroFrequency(t *testing.T) {
	if got := OutputValidDelay(0); got != 0 {
		t.Errorf("OutputValidDelay(0) = %v, want 0", got)
	}
	if got := SystemClock(Slave, 48*physic.KiloHertz); got != 0 {
		t.Errorf("SystemClock(SLAVE) = %v, want 0", got)
	}
}

func TestSamplingRatesAscending(t *testing.T) {
	for i := 1; i < len(SamplingRates); i++ {
		if SamplingRates[i] <= SamplingRates[i-1] {
			t.Errorf("SamplingRates[%d]=%v not above %v", i, SamplingRates[i], SamplingRates[i-1])
		}
	}
}
