// Package downloader turns a URL into zero or more ingestible track
// descriptors. The ingest submission path calls it once per URL and
// enqueues one INGEST job per returned Track.
package downloader

import (
	"context"
	"strings"
)

// Track is one track descriptor returned by a Downloader.
type Track struct {
	VideoID    string
	Title      string
	Artist     string
	Album      string
	AlbumArt   string
	DurationMs int
	WebpageURL string
	Tags       []string
	Categories []string
	AudioPath  string
}

// Downloader fetches one or more tracks from an external URL.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]Track, error)
}

// rejectedTitleKeywords are matched case-insensitively against a
// candidate's title; a match excludes the track from ingestion.
var rejectedTitleKeywords = []string{
	"lyric", "lyrics", "live", "remix", "slowed", "sped", "cover",
}

// accept reports whether t should be ingested: its categories must
// include "Music" and its title must not contain any rejected keyword.
func accept(t Track) bool {
	musicCategory := false
	for _, c := range t.Categories {
		if strings.EqualFold(c, "music") {
			musicCategory = true
			break
		}
	}
	if !musicCategory {
		return false
	}

	lower := strings.ToLower(t.Title)
	for _, kw := range rejectedTitleKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
