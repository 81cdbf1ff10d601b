package index

import (
	"errors"
	"math"
	"time"

	"github.com/soundmark/soundmark/internal/apperr"
	"github.com/soundmark/soundmark/internal/logging"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Defaults for FindMatches.
const (
	defaultLimit         = 3
	defaultMinVotes      = 20
	defaultMinConfidence = 0.15

	maxRetries       = 3
	insertChunkSize  = 10000
	retryBaseBackoff = 50 * time.Millisecond
)

// Index is the persistent inverted index over landmark hashes.
type Index struct {
	db *gorm.DB
}

// Open connects to Postgres at dbURL and migrates the songs/fingerprints
// schema.
func Open(dbURL string) (*Index, error) {
	return open(postgres.Open(dbURL))
}

// open builds an Index over any GORM dialector. Open uses it with the
// Postgres driver; tests use it with an in-memory sqlite driver to
// exercise the same query and migration logic without a live Postgres
// instance.
func open(dialector gorm.Dialector) (*Index, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, apperr.New(apperr.StorageError, err)
	}
	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		return nil, apperr.New(apperr.StorageError, err)
	}
	return &Index{db: db}, nil
}

// Metadata is the subset of Song fields a caller supplies to InsertSong;
// SongID and Fingerprinted are assigned by the index.
type Metadata struct {
	SongName   string
	VideoID    string
	Title      string
	Artist     string
	Album      string
	AlbumArt   string
	WebpageURL string
}

// InsertSong upserts by song_name (falling back to Title when SongName is
// empty), returning the existing song_id on conflict.
func (idx *Index) InsertSong(meta Metadata) (uint64, error) {
	name := meta.SongName
	if name == "" {
		name = meta.Title
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		songID, err := idx.insertSongOnce(name, meta)
		if err == nil {
			return songID, nil
		}
		lastErr = err
		logging.L().Warn("insert_song retry", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(retryBaseBackoff * time.Duration(attempt+1))
	}
	return 0, apperr.Newf(apperr.StorageError, "insert_song: exhausted %d retries: %v", maxRetries, lastErr)
}

func (idx *Index) insertSongOnce(name string, meta Metadata) (uint64, error) {
	var songID uint64
	err := idx.db.Transaction(func(tx *gorm.DB) error {
		var existing Song
		err := tx.Where("song_name = ?", name).First(&existing).Error
		if err == nil {
			songID = existing.SongID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		song := Song{
			SongName:   name,
			VideoID:    meta.VideoID,
			Title:      meta.Title,
			Artist:     meta.Artist,
			Album:      meta.Album,
			AlbumArt:   meta.AlbumArt,
			WebpageURL: meta.WebpageURL,
		}
		if err := tx.Create(&song).Error; err != nil {
			// Another worker may have inserted the same song_name
			// concurrently; treat the unique-constraint violation as
			// a conflict and re-read the winning row.
			var existing2 Song
			if fetchErr := tx.Where("song_name = ?", name).First(&existing2).Error; fetchErr == nil {
				songID = existing2.SongID
				return nil
			}
			return err
		}
		songID = song.SongID
		return nil
	})
	return songID, err
}

// BulkInsertFingerprints inserts rows in 10,000-row chunks, each within
// its own transaction with up to 3 retries, then best-effort marks the
// song fingerprinted.
func (idx *Index) BulkInsertFingerprints(rows []Fingerprint, songID uint64) error {
	for start := 0; start < len(rows); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var lastErr error
		ok := false
		for attempt := 0; attempt < maxRetries; attempt++ {
			if err := idx.db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&chunk).Error
			}); err != nil {
				lastErr = err
				logging.L().Warn("bulk_insert_fingerprints chunk retry",
					zap.Int("chunk_start", start), zap.Int("attempt", attempt), zap.Error(err))
				time.Sleep(retryBaseBackoff * time.Duration(attempt+1))
				continue
			}
			ok = true
			break
		}
		if !ok {
			return apperr.Newf(apperr.StorageError,
				"bulk_insert_fingerprints: chunk at %d exhausted %d retries: %v", start, maxRetries, lastErr)
		}
	}

	if err := idx.db.Model(&Song{}).Where("song_id = ?", songID).
		Update("fingerprinted", true).Error; err != nil {
		logging.L().Error("marking song fingerprinted failed (advisory only)",
			zap.Uint64("song_id", songID), zap.Error(err))
	}
	return nil
}

// FindMatchesOption configures FindMatches away from its defaults.
type FindMatchesOption func(*findMatchesParams)

type findMatchesParams struct {
	limit         int
	minVotes      int
	minConfidence float64
}

func WithLimit(n int) FindMatchesOption         { return func(p *findMatchesParams) { p.limit = n } }
func WithMinVotes(n int) FindMatchesOption      { return func(p *findMatchesParams) { p.minVotes = n } }
func WithMinConfidence(c float64) FindMatchesOption {
	return func(p *findMatchesParams) { p.minConfidence = c }
}

// FindMatches performs an equi-join against the fingerprints table,
// tallying votes per song and ranking by vote count then confidence.
// An empty query returns [] without touching the store.
func (idx *Index) FindMatches(queryHashes []QueryHash, opts ...FindMatchesOption) ([]Candidate, error) {
	if len(queryHashes) == 0 {
		return []Candidate{}, nil
	}

	params := findMatchesParams{
		limit:         defaultLimit,
		minVotes:      defaultMinVotes,
		minConfidence: defaultMinConfidence,
	}
	for _, opt := range opts {
		opt(&params)
	}

	hashes := make([][]byte, len(queryHashes))
	for i, qh := range queryHashes {
		hashes[i] = qh.Hash[:]
	}
	n := len(queryHashes)

	type row struct {
		SongID uint64
		Votes  int
	}
	var rows []row
	err := idx.db.Model(&Fingerprint{}).
		Select("song_id, count(*) as votes").
		Where("hash IN ?", hashes).
		Group("song_id").
		Having("count(*) >= ?", params.minVotes).
		Order("votes DESC").
		Limit(params.limit * 4). // over-fetch before the confidence filter
		Find(&rows).Error
	if err != nil {
		return nil, apperr.New(apperr.StorageError, err)
	}
	if len(rows) == 0 {
		return []Candidate{}, nil
	}

	songIDs := make([]uint64, len(rows))
	for i, r := range rows {
		songIDs[i] = r.SongID
	}
	var songs []Song
	if err := idx.db.Where("song_id IN ?", songIDs).Find(&songs).Error; err != nil {
		return nil, apperr.New(apperr.StorageError, err)
	}
	songByID := make(map[uint64]Song, len(songs))
	for _, s := range songs {
		songByID[s.SongID] = s
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		confidence := float64(r.Votes) / float64(n)
		if confidence < params.minConfidence {
			continue
		}
		s := songByID[r.SongID]
		candidates = append(candidates, Candidate{
			SongID:     r.SongID,
			SongName:   s.SongName,
			VideoID:    s.VideoID,
			Title:      s.Title,
			Artist:     s.Artist,
			Album:      s.Album,
			AlbumArt:   s.AlbumArt,
			WebpageURL: s.WebpageURL,
			Votes:      r.Votes,
			Confidence: roundTo(confidence, 4),
		})
	}

	// Rows already arrive votes-descending from the query; break ties by
	// confidence descending, then truncate to the requested limit.
	sortCandidates(candidates)
	if len(candidates) > params.limit {
		candidates = candidates[:params.limit]
	}
	return candidates, nil
}

func sortCandidates(c []Candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func less(a, b Candidate) bool {
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	return a.Confidence > b.Confidence
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
