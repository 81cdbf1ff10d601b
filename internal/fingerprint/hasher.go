package fingerprint

import (
	"crypto/sha1"
	"database/sql/driver"
	"fmt"
)

// Anchor→target pairing window and fan-out bound.
const (
	MinTimeDelta = 1
	MaxTimeDelta = 40
	FanOut       = 5

	// HashSize is the width of an emitted landmark hash in bytes: a
	// fixed 20-hex-character (80-bit) opaque byte string.
	HashSize = 10
)

// Hash is the fixed-width landmark hash.
type Hash [HashSize]byte

// Value implements driver.Valuer so a Hash can be stored directly as a
// bytea column.
func (h Hash) Value() (driver.Value, error) {
	return h[:], nil
}

// Scan implements sql.Scanner for reading a bytea column back into a Hash.
func (h *Hash) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("fingerprint: cannot scan %T into Hash", src)
	}
	if len(b) != HashSize {
		return fmt.Errorf("fingerprint: scanned hash has %d bytes, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return nil
}

// Landmark is a (hash, anchor_time) pair: a hash and the frame index of
// its anchor peak.
type Landmark struct {
	Hash       Hash
	AnchorTime int // frame index of the anchor peak
}

// Fingerprint emits the landmark set for peaks, which must already be
// sorted by Time ascending (the contract Pick guarantees). For each
// anchor peak it scans forward, pairing with up to FanOut targets whose
// time delta falls in [MinTimeDelta, MaxTimeDelta], stopping the scan
// early once the delta exceeds MaxTimeDelta (peaks are time-sorted, so
// no further target can qualify).
func Fingerprint(peaks []Peak) []Landmark {
	landmarks := make([]Landmark, 0, len(peaks)*FanOut)
	for i, anchor := range peaks {
		emitted := 0
		for j := i + 1; j < len(peaks) && emitted < FanOut; j++ {
			target := peaks[j]
			dt := target.Time - anchor.Time
			if dt > MaxTimeDelta {
				break
			}
			if dt < MinTimeDelta {
				continue
			}
			landmarks = append(landmarks, Landmark{
				Hash:       computeHash(anchor.Freq/2, target.Freq/2, dt/2),
				AnchorTime: anchor.Time,
			})
			emitted++
		}
	}
	return landmarks
}

// computeHash derives the 10-byte landmark hash from the quantized
// triple (f_a//2, f_t//2, Δt//2): SHA-1 of the canonical string
// "fa|ft|dt", truncated to the first 10 bytes.
func computeHash(anchorFreqQ, targetFreqQ, deltaQ int) Hash {
	canonical := fmt.Sprintf("%d|%d|%d", anchorFreqQ, targetFreqQ, deltaQ)
	sum := sha1.Sum([]byte(canonical))
	var h Hash
	copy(h[:], sum[:HashSize])
	return h
}
