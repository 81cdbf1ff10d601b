package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeltaWindow(t *testing.T) {
	peaks := []Peak{
		{Time: 0, Freq: 100, Energy: 0},
		{Time: 1, Freq: 110, Energy: 0},   // dt=1, in window
		{Time: 20, Freq: 120, Energy: 0},  // dt=20, in window
		{Time: 40, Freq: 130, Energy: 0},  // dt=40, in window (inclusive)
		{Time: 41, Freq: 140, Energy: 0},  // dt=41, out of window, also breaks scan
	}

	landmarks := Fingerprint(peaks)

	fromFirst := 0
	for _, lm := range landmarks {
		if lm.AnchorTime == 0 {
			fromFirst++
		}
	}
	require.Equal(t, 3, fromFirst, "the t=0 anchor pairs with dt=1,20,40 and stops at dt=41")
	// Later anchors pair too: t=1 -> 20,40,41; t=20 -> 40,41; t=40 -> 41.
	require.Len(t, landmarks, 9)
}

func TestFingerprintFanOutBound(t *testing.T) {
	peaks := make([]Peak, 0, 20)
	peaks = append(peaks, Peak{Time: 0, Freq: 0, Energy: 0})
	for dt := 1; dt <= 20; dt++ {
		peaks = append(peaks, Peak{Time: dt, Freq: dt * 2, Energy: 0})
	}

	landmarks := Fingerprint(peaks)

	anchorCount := 0
	for _, lm := range landmarks {
		if lm.AnchorTime == 0 {
			anchorCount++
		}
	}
	require.Equal(t, FanOut, anchorCount)
}

func TestFingerprintMinDeltaExcludesSameFrame(t *testing.T) {
	peaks := []Peak{
		{Time: 5, Freq: 10, Energy: 0},
		{Time: 5, Freq: 20, Energy: 0}, // dt=0, below MinTimeDelta
		{Time: 6, Freq: 30, Energy: 0}, // dt=1, qualifies
	}

	landmarks := Fingerprint(peaks)

	// Neither same-frame pair qualifies; each t=5 anchor pairs only with t=6.
	require.Len(t, landmarks, 2)
}

func TestHashIsFixedWidth(t *testing.T) {
	h := computeHash(50, 60, 20)
	require.Len(t, h, HashSize)
}

func TestHashIsDeterministic(t *testing.T) {
	a := computeHash(10, 20, 5)
	b := computeHash(10, 20, 5)
	require.Equal(t, a, b)
}

func TestHashDiffersOnDifferentInputs(t *testing.T) {
	a := computeHash(10, 20, 5)
	b := computeHash(10, 20, 6)
	require.NotEqual(t, a, b)
}

func TestFingerprintEmptyPeaks(t *testing.T) {
	require.Empty(t, Fingerprint(nil))
}
