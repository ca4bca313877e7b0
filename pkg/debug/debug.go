// Package debug provides global debug logging flags
package debug

import (
	"log/slog"

	"github.com/teslashibe/go-gaze/internal/log"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether per-frame tracing is emitted (ingest, fan-out, wire decode).
// Use --debug-frames to enable these very verbose logs
var Frames bool

// Enable sets both switches and lowers the global log level to debug when either is on.
func Enable(verbose, frames bool) {
	Enabled, Frames = verbose, frames
	if verbose || frames {
		log.SetLevel("debug")
	}
}

// Log emits a debug message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		emit(msg, args...)
	}
}

// FrameLog emits a debug message only if frame tracing is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		emit(msg, args...)
	}
}

// emit logs at debug level, lowering the global level first if it would drop the record.
func emit(msg string, args ...any) {
	if log.Level() > slog.LevelDebug {
		log.SetLevel("debug")
	}
	log.Debug(msg, args...)
}
