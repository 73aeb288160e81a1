package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajlab/internal/dynamo"
)

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	series := make([]float64, 1024)
	for i := range series {
		series[i] = 3 + math.Sin(2*math.Pi*2.5*float64(i)*dt)
	}

	sp, err := PowerSpectrum(series, dt)
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Freq) != 513 {
		t.Fatalf("bins = %d, want 513", len(sp.Freq))
	}

	freq, power := sp.Dominant()
	binWidth := 1 / (1024 * dt)
	if math.Abs(freq-2.5) > binWidth {
		t.Errorf("dominant = %.3f Hz, want 2.5", freq)
	}
	if power <= 0 {
		t.Errorf("power = %g", power)
	}
}

func TestPowerSpectrumPads(t *testing.T) {
	sp, err := PowerSpectrum(make([]float64, 100), 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Power) != 65 {
		t.Errorf("bins = %d, want 65", len(sp.Power))
	}
	if f, p := sp.Dominant(); f != 0 || p != 0 {
		t.Errorf("flat series dominant = (%g, %g)", f, p)
	}
}

func TestPowerSpectrumBadInput(t *testing.T) {
	if _, err := PowerSpectrum([]float64{1}, 0.1); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("short series: %v", err)
	}
	if _, err := PowerSpectrum([]float64{1, 2}, 0); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("zero dt: %v", err)
	}
}

func TestBand(t *testing.T) {
	sp := Spectrum{Freq: []float64{0, 1, 2, 3}, Power: []float64{0, 4, 5, 6}}
	b := sp.Band(2)
	if len(b.Freq) != 3 || b.Power[2] != 5 {
		t.Errorf("band = %+v", b)
	}
}
