// Package logging provides the process-wide structured logger. Every
// component logs through the *zap.Logger handed out by L(), tagged with
// fields (song_id, job_id, hash_count, ...) rather than formatted strings.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	global *zap.Logger
)

// Init builds the process-wide logger. dev selects a human-readable
// console encoder (local development); otherwise JSON output suited to
// log aggregation is used. Init is safe to call multiple times; only the
// first call takes effect.
func Init(dev bool) *zap.Logger {
	once.Do(func() {
		var l *zap.Logger
		var err error
		if dev {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}
		if err != nil {
			l = zap.NewNop()
		}
		global = l
	})
	return global
}

// L returns the process-wide logger, initializing a production logger on
// first use if Init was never called.
func L() *zap.Logger {
	if global == nil {
		return Init(false)
	}
	return global
}

// Sync flushes any buffered log entries. Call during shutdown.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
