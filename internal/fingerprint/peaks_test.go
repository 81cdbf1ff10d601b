package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPickSortedByTimeThenFreq(t *testing.T) {
	sampleRate := 22050
	samples := sineWave(880, sampleRate, sampleRate)

	spec := Compute(samples, sampleRate)
	peaks := Pick(spec)

	require.NotEmpty(t, peaks)
	for i := 1; i < len(peaks); i++ {
		prev, cur := peaks[i-1], peaks[i]
		require.True(t, prev.Time < cur.Time || (prev.Time == cur.Time && prev.Freq <= cur.Freq))
	}
}

func TestPickRespectsFloor(t *testing.T) {
	sampleRate := 22050
	samples := sineWave(440, sampleRate, sampleRate)

	spec := Compute(samples, sampleRate)
	peaks := Pick(spec)

	for _, p := range peaks {
		require.Greater(t, p.Energy, float32(peakFloorDB))
	}
}

func TestPickIsNeighborhoodMax(t *testing.T) {
	sampleRate := 22050
	samples := sineWave(1200, sampleRate, sampleRate)

	spec := Compute(samples, sampleRate)
	peaks := Pick(spec)

	halfT := timeNeighborFrames / 2
	halfF := freqNeighborBins / 2
	for _, p := range peaks {
		require.True(t, isNeighborhoodMax(spec, p.Time, p.Freq, p.Energy, halfT, halfF))
	}
}

func TestPickEmptyOnSilence(t *testing.T) {
	sampleRate := 22050
	samples := make([]float32, NFFT*4)

	spec := Compute(samples, sampleRate)
	peaks := Pick(spec)

	require.Empty(t, peaks)
}

func TestPickValidIndices(t *testing.T) {
	sampleRate := 22050
	samples := sineWave(2000, sampleRate, sampleRate)

	spec := Compute(samples, sampleRate)
	peaks := Pick(spec)

	for _, p := range peaks {
		require.GreaterOrEqual(t, p.Time, 0)
		require.Less(t, p.Time, spec.NumFrames)
		require.GreaterOrEqual(t, p.Freq, 0)
		require.Less(t, p.Freq, spec.NumBins)
	}
}
