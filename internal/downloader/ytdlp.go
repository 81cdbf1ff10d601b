package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/soundmark/soundmark/internal/apperr"
	"github.com/soundmark/soundmark/internal/audio"
	"github.com/soundmark/soundmark/internal/logging"
)

// YTDLP is the default Downloader, backed by the yt-dlp binary via the
// go-ytdlp wrapper. It shells out once per URL, asking yt-dlp to extract
// audio to WAV and to dump the post-extraction metadata as JSON.
type YTDLP struct {
	TempDir string
}

// NewYTDLP returns a Downloader that writes extracted audio under tempDir.
func NewYTDLP(tempDir string) *YTDLP {
	return &YTDLP{TempDir: tempDir}
}

type ytdlpThumbnail struct {
	URL   string `json:"url"`
	Width int    `json:"width"`
}

type ytdlpEntry struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Artist       string           `json:"artist"`
	Channel      string           `json:"channel"`
	Uploader     string           `json:"uploader"`
	Album        string           `json:"album"`
	Duration     float64          `json:"duration"`
	WebpageURL   string           `json:"webpage_url"`
	Categories   []string         `json:"categories"`
	Tags         []string         `json:"tags"`
	Thumbnails   []ytdlpThumbnail `json:"thumbnails"`
	RequestedDLs []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

// Fetch runs yt-dlp against url, extracts one WAV per resolved entry (a
// playlist URL yields multiple), and filters out non-music and
// malformed results before returning.
func (y *YTDLP) Fetch(ctx context.Context, sourceURL string) ([]Track, error) {
	if err := os.MkdirAll(y.TempDir, 0o755); err != nil {
		return nil, apperr.New(apperr.ExternalError, err)
	}

	dl := ytdlp.New().
		ExtractAudio().
		AudioFormat("wav").
		NoPlaylist().
		Output(filepath.Join(y.TempDir, "%(id)s.%(ext)s")).
		PrintJSON()

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		return nil, apperr.New(apperr.ExternalError, err)
	}

	entries, err := parseEntries(result.Stdout)
	if err != nil {
		return nil, apperr.New(apperr.ExternalError, err)
	}

	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		t := toTrack(e, y.TempDir, sourceURL)
		if !accept(t) {
			continue
		}
		if err := audio.ValidateWAVHeader(t.AudioPath); err != nil {
			logging.L().Warn("skipping track with invalid wav header",
				zap.String("video_id", t.VideoID), zap.Error(err))
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func toTrack(e ytdlpEntry, tempDir, sourceURL string) Track {
	artist := e.Artist
	if artist == "" {
		artist = e.Channel
	}
	if artist == "" {
		artist = e.Uploader
	}

	videoID := e.ID
	if videoID == "" {
		videoID = extractYouTubeID(sourceURL)
	}

	audioPath := ""
	if len(e.RequestedDLs) > 0 {
		audioPath = e.RequestedDLs[0].Filepath
	} else {
		audioPath = filepath.Join(tempDir, videoID+".wav")
	}

	return Track{
		VideoID:    videoID,
		Title:      e.Title,
		Artist:     artist,
		Album:      e.Album,
		AlbumArt:   widestThumbnail(e.Thumbnails),
		DurationMs: int(e.Duration * 1000),
		WebpageURL: e.WebpageURL,
		Tags:       e.Tags,
		Categories: e.Categories,
		AudioPath:  audioPath,
	}
}

// widestThumbnail returns the highest-width thumbnail URL.
func widestThumbnail(thumbs []ytdlpThumbnail) string {
	best := ytdlpThumbnail{}
	for _, th := range thumbs {
		if th.Width > best.Width {
			best = th
		}
	}
	return best.URL
}

func parseEntries(stdout string) ([]ytdlpEntry, error) {
	entries, err := decodeJSONLines[ytdlpEntry](stdout)
	if err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}
	return entries, nil
}
