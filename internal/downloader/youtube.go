package downloader

import (
	"net/url"
	"strings"
)

// extractYouTubeID pulls a video id out of the handful of YouTube URL
// shapes yt-dlp itself also normalizes, used as a fallback when an
// entry's own "id" field comes back empty.
func extractYouTubeID(youtubeURL string) string {
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return ""
	}

	if strings.Contains(u.Host, "youtu.be") {
		id := strings.TrimPrefix(u.Path, "/")
		if i := strings.Index(id, "?"); i != -1 {
			id = id[:i]
		}
		return id
	}

	if strings.Contains(u.Host, "youtube.com") {
		if u.Path == "/watch" || strings.HasPrefix(u.Path, "/watch") {
			if id := u.Query().Get("v"); id != "" {
				return id
			}
		}
		if id, ok := strings.CutPrefix(u.Path, "/embed/"); ok {
			return id
		}
		if id, ok := strings.CutPrefix(u.Path, "/v/"); ok {
			return id
		}
	}

	return ""
}
