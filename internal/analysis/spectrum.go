package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/trajlab/internal/dynamo"
)

// Spectrum is a one-sided power spectrum. Freq is in Hz.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum removes the mean of series, zero-pads it to a power of two
// and returns the magnitude of each non-negative frequency bin.
func PowerSpectrum(series []float64, dt float64) (Spectrum, error) {
	if len(series) < 2 {
		return Spectrum{}, dynamo.Configf("spectrum needs at least 2 samples, got %d", len(series))
	}
	if dt <= 0 {
		return Spectrum{}, dynamo.Configf("sample interval must be positive, got %g", dt)
	}

	n := 1
	for n < len(series) {
		n *= 2
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	padded := make([]float64, n)
	for i, v := range series {
		padded[i] = v - mean
	}

	coeff := fft.FFTReal(padded)
	bins := n/2 + 1

	sp := Spectrum{
		Freq:  make([]float64, bins),
		Power: make([]float64, bins),
	}
	for i := 0; i < bins; i++ {
		sp.Freq[i] = float64(i) / (float64(n) * dt)
		sp.Power[i] = cmplx.Abs(coeff[i])
	}
	return sp, nil
}

// Dominant returns the strongest bin above DC. Both values are zero when
// the spectrum has no such bin.
func (s Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			power = s.Power[i]
			freq = s.Freq[i]
		}
	}
	return freq, power
}

// Band returns the bins with Freq <= maxHz.
func (s Spectrum) Band(maxHz float64) Spectrum {
	n := 0
	for n < len(s.Freq) && s.Freq[n] <= maxHz {
		n++
	}
	return Spectrum{Freq: s.Freq[:n], Power: s.Power[:n]}
}
