package audio

import (
	"os"

	"github.com/go-audio/wav"

	"github.com/soundmark/soundmark/internal/apperr"
)

// ValidateWAVHeader sanity-checks that path is a well-formed WAV/PCM
// container. Decode calls it on every .wav input before handing the
// file to the beep backend, and the downloader calls it on yt-dlp's
// extracted output before accepting a track, so both paths reject a
// malformed container at the same place.
func ValidateWAVHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return apperr.New(apperr.DecodeError, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return apperr.Newf(apperr.DecodeError, "%s is not a valid PCM WAV file", path)
	}
	if dec.BitDepth != 16 && dec.BitDepth != 32 {
		return apperr.Newf(apperr.DecodeError, "unsupported WAV bit depth %d in %s", dec.BitDepth, path)
	}
	return nil
}
