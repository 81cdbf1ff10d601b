// Package service wires decoding, fingerprinting, and the index behind
// three operations: submit a match query, submit an ingest URL, and
// look up a job's status. It is the boundary this module exposes to an
// HTTP surface or, in this repo, to cmd/soundmarkctl.
package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/soundmark/soundmark/internal/apperr"
	"github.com/soundmark/soundmark/internal/downloader"
	"github.com/soundmark/soundmark/internal/index"
	"github.com/soundmark/soundmark/internal/jobs"
	"github.com/soundmark/soundmark/internal/logging"
	"go.uber.org/zap"
)

// Config configures the Service.
type Config struct {
	TempDir    string
	SampleRate int
	Workers    int
}

// Option is a functional option for configuring the service.
type Option func(*Config)

func WithTempDir(dir string) Option  { return func(c *Config) { c.TempDir = dir } }
func WithSampleRate(rate int) Option { return func(c *Config) { c.SampleRate = rate } }
func WithWorkers(n int) Option       { return func(c *Config) { c.Workers = n } }

func defaultConfig() *Config {
	return &Config{TempDir: "/tmp/soundmark", SampleRate: 22050, Workers: 4}
}

// Service is the fingerprinting engine's external-facing handle.
type Service struct {
	runner *jobs.Runner
	dl     downloader.Downloader
	cfg    *Config
}

// New builds a Service over an already-open Index and Downloader.
func New(idx *index.Index, dl downloader.Downloader, opts ...Option) *Service {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		runner: jobs.NewRunner(idx, cfg.SampleRate, cfg.Workers),
		dl:     dl,
		cfg:    cfg,
	}
}

// SubmitMatch takes ownership of audioBytes: it writes them to a temp
// .wav path and enqueues a MATCH job.
func (s *Service) SubmitMatch(audioBytes []byte) (uuid.UUID, error) {
	path, err := s.writeTempFile(audioBytes)
	if err != nil {
		return uuid.Nil, err
	}
	return s.runner.SubmitMatch(path), nil
}

// SubmitIngest resolves url via the downloader collaborator and enqueues
// one INGEST job per accepted track. It returns the job ids for every
// enqueued sub-job; a downloader failure for the whole URL is an
// ExternalError, but per-track filtering never fails the call.
func (s *Service) SubmitIngest(ctx context.Context, url string) ([]uuid.UUID, error) {
	tracks, err := s.dl.Fetch(ctx, url)
	if err != nil {
		return nil, apperr.New(apperr.ExternalError, err)
	}

	ids := make([]uuid.UUID, 0, len(tracks))
	for _, t := range tracks {
		meta := index.Metadata{
			VideoID:    t.VideoID,
			Title:      t.Title,
			Artist:     t.Artist,
			Album:      t.Album,
			AlbumArt:   t.AlbumArt,
			WebpageURL: t.WebpageURL,
		}
		ids = append(ids, s.runner.SubmitIngest(meta, t.AudioPath))
	}
	logging.L().Info("submitted ingest batch", zap.String("url", url), zap.Int("tracks", len(ids)))
	return ids, nil
}

// GetStatus looks up a job's current record.
func (s *Service) GetStatus(id uuid.UUID) (jobs.Status, error) {
	return s.runner.Status(id)
}

// Shutdown drains the underlying worker pool.
func (s *Service) Shutdown() {
	s.runner.Shutdown()
}

func (s *Service) writeTempFile(audioBytes []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.TempDir, 0o755); err != nil {
		return "", apperr.New(apperr.StorageError, err)
	}
	f, err := os.CreateTemp(s.cfg.TempDir, "submit-*.wav")
	if err != nil {
		return "", apperr.New(apperr.StorageError, err)
	}
	defer f.Close()

	if _, err := f.Write(audioBytes); err != nil {
		os.Remove(f.Name())
		return "", apperr.New(apperr.StorageError, err)
	}
	return filepath.Clean(f.Name()), nil
}
