// Package audio decodes an audio file on disk to mono float32 PCM
// samples at a fixed sample rate.
package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/soundmark/soundmark/internal/apperr"
)

// Samples is a finite sequence of real-valued mono samples at SampleRate
// Hz, normalized to [-1, 1].
type Samples struct {
	Data       []float32
	SampleRate int
}

// Decode reads path, downmixes to mono, and resamples to targetRate. It
// dispatches on file extension among the formats the beep decode backend
// supports (wav, mp3, flac); any other extension is a DecodeError, as is
// any malformed or unreadable input.
func Decode(path string, targetRate int) (Samples, error) {
	if strings.ToLower(filepath.Ext(path)) == ".wav" {
		if err := ValidateWAVHeader(path); err != nil {
			return Samples{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return Samples{}, apperr.New(apperr.DecodeError, err)
	}
	defer f.Close()

	streamer, format, err := decodeByExt(path, f)
	if err != nil {
		return Samples{}, apperr.New(apperr.DecodeError, err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	if int(format.SampleRate) != targetRate {
		source = beep.Resample(4, format.SampleRate, beep.SampleRate(targetRate), streamer)
	}

	data := make([]float32, 0, 1<<20)
	buf := make([][2]float64, 2048)
	for {
		n, ok := source.Stream(buf)
		for i := 0; i < n; i++ {
			l, r := buf[i][0], buf[i][1]
			data = append(data, float32((l+r)/2))
		}
		if !ok {
			break
		}
	}

	if len(data) == 0 {
		return Samples{}, apperr.Newf(apperr.DecodeError, "decoded zero samples from %s", path)
	}

	return Samples{Data: data, SampleRate: targetRate}, nil
}

func decodeByExt(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Decode(f)
	case ".mp3":
		return mp3.Decode(f)
	case ".flac":
		return flac.Decode(f)
	default:
		return nil, beep.Format{}, apperr.Newf(apperr.DecodeError, "unsupported audio format %q", filepath.Ext(path))
	}
}

// MaxAbs returns the peak absolute sample value, used by the job
// runner's non-silence check.
func (s Samples) MaxAbs() float32 {
	var max float32
	for _, v := range s.Data {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}
