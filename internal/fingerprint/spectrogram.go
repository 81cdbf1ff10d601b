// Package fingerprint turns decoded audio samples into landmark hashes:
// compute a dB spectrogram, pick its 2-D local maxima, and pair them
// into anchor-target hashes. The three stages live in one package
// because they share the dB-spectrogram representation, and the peak
// neighborhood constants are expressed directly in spectrogram bins and
// frames.
package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// STFT parameters. This is a non-centered STFT: frame t starts at
// sample t*HopSize, with no reflect/centered padding at the signal
// edges (see DESIGN.md's Open Question decision).
const (
	NFFT    = 2048
	HopSize = 512

	// dbFloor is the minimum reported spectrogram value.
	dbFloor = -80
)

// Spectrogram is a dense F×T grid of dB magnitude values, indexed
// Frames[t][f] for cache-friendly frame-at-a-time iteration.
type Spectrogram struct {
	Frames     [][]float32 // Frames[t][f], f in [0, NumBins)
	NumFrames  int
	NumBins    int
	SampleRate int
	HopSize    int
}

// hann returns an n-point Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Compute runs a Hann-windowed STFT over samples and converts the
// magnitude to dB relative to the spectrogram's own peak, clamped at
// dbFloor. samples must contain at least NFFT values; callers check the
// length first, and a shorter buffer is a programming fault (panic), not
// a recoverable error. An all-zero buffer yields dbFloor everywhere.
func Compute(samples []float32, sampleRate int) *Spectrogram {
	n := len(samples)
	if n < NFFT {
		panic("fingerprint: sample buffer shorter than one analysis window")
	}

	numFrames := (n-NFFT)/HopSize + 1
	numBins := NFFT/2 + 1
	window := hann(NFFT)

	mags := make([][]float64, numFrames)
	maxMag := 0.0

	frame := make([]float64, NFFT)
	for t := 0; t < numFrames; t++ {
		start := t * HopSize
		for i := 0; i < NFFT; i++ {
			frame[i] = float64(samples[start+i]) * window[i]
		}
		spectrum := fft.FFTReal(frame)

		row := make([]float64, numBins)
		for f := 0; f < numBins; f++ {
			m := cmplx.Abs(spectrum[f])
			row[f] = m
			if m > maxMag {
				maxMag = m
			}
		}
		mags[t] = row
	}

	frames := make([][]float32, numFrames)
	for t := 0; t < numFrames; t++ {
		row := make([]float32, numBins)
		for f := 0; f < numBins; f++ {
			var db float64
			if maxMag > 0 {
				db = 20 * math.Log10(mags[t][f]/maxMag)
			} else {
				db = dbFloor
			}
			if db < dbFloor {
				db = dbFloor
			}
			row[f] = float32(db)
		}
		frames[t] = row
	}

	return &Spectrogram{
		Frames:     frames,
		NumFrames:  numFrames,
		NumBins:    numBins,
		SampleRate: sampleRate,
		HopSize:    HopSize,
	}
}
