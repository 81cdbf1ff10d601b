package fingerprint

import "sort"

// Peak-picking neighborhood: a point is a peak iff it equals the
// maximum over a ΔF×ΔT rectangle centered on it AND exceeds the
// amplitude floor.
const (
	freqNeighborBins   = 20 // ΔF
	timeNeighborFrames = 10 // ΔT
	peakFloorDB        = -40
)

// Peak is a 2-D local maximum in the dB spectrogram.
type Peak struct {
	Time   int // frame index
	Freq   int // bin index
	Energy float32
}

// Pick finds every local maximum of s within a (ΔF=20 bins)×(ΔT=10
// frames) neighborhood that also exceeds peakFloorDB, using replicate
// (edge-clamped) padding at the spectrogram's boundaries. The result is
// sorted by Time ascending, ties broken by Freq ascending.
func Pick(s *Spectrogram) []Peak {
	halfT := timeNeighborFrames / 2
	halfF := freqNeighborBins / 2

	var peaks []Peak
	for t := 0; t < s.NumFrames; t++ {
		for f := 0; f < s.NumBins; f++ {
			val := s.Frames[t][f]
			if val <= peakFloorDB {
				continue
			}
			if isNeighborhoodMax(s, t, f, val, halfT, halfF) {
				peaks = append(peaks, Peak{Time: t, Freq: f, Energy: val})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Time != peaks[j].Time {
			return peaks[i].Time < peaks[j].Time
		}
		return peaks[i].Freq < peaks[j].Freq
	})
	return peaks
}

func isNeighborhoodMax(s *Spectrogram, t, f int, val float32, halfT, halfF int) bool {
	for dt := -halfT; dt <= halfT; dt++ {
		tt := clamp(t+dt, 0, s.NumFrames-1)
		row := s.Frames[tt]
		for df := -halfF; df <= halfF; df++ {
			ff := clamp(f+df, 0, s.NumBins-1)
			if row[ff] > val {
				return false
			}
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
