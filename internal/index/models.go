// Package index implements the persistent inverted index over landmark
// hashes and the song catalog it points into.
package index

import "github.com/soundmark/soundmark/internal/fingerprint"

// Song is the catalog row for one reference track.
type Song struct {
	SongID        uint64 `gorm:"column:song_id;primaryKey;autoIncrement"`
	SongName      string `gorm:"column:song_name;uniqueIndex"`
	VideoID       string `gorm:"column:video_id"`
	Title         string `gorm:"column:title"`
	Artist        string `gorm:"column:artist"`
	Album         string `gorm:"column:album"`
	AlbumArt      string `gorm:"column:album_art"`
	WebpageURL    string `gorm:"column:webpage_url"`
	Fingerprinted bool   `gorm:"column:fingerprinted"`
}

// TableName pins the GORM default (pluralized, snake-cased) name explicitly.
func (Song) TableName() string { return "songs" }

// Fingerprint is one landmark row: a hash pointing back at a song and
// the anchor frame it was extracted at.
type Fingerprint struct {
	ID         uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	Hash       fingerprint.Hash `gorm:"column:hash;index:idx_fingerprints_hash;type:bytea"`
	SongID     uint64           `gorm:"column:song_id;index"`
	TimeOffset int32            `gorm:"column:time_offset"`
}

func (Fingerprint) TableName() string { return "fingerprints" }

// Candidate is one ranked match result.
type Candidate struct {
	SongID     uint64  `json:"song_id"`
	SongName   string  `json:"song_name"`
	VideoID    string  `json:"video_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	AlbumArt   string  `json:"album_art"`
	WebpageURL string  `json:"webpage_url"`
	Votes      int     `json:"votes"`
	Confidence float64 `json:"confidence"`
}

// QueryHash is one (hash, query_offset) pair submitted to FindMatches.
// query_offset is retained for future time-delta-histogram refinement;
// the current coarse voting scheme does not consult it.
type QueryHash struct {
	Hash        fingerprint.Hash
	QueryOffset int32
}
