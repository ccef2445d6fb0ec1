// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-balltrack/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Tracking controls whether verbose per-frame tracking logs are shown
// (color matches, gate rejections, inference timings).
// Use --debug-tracking to enable these very verbose logs
var Tracking bool

// Log emits a record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Info(msg, args...)
	}
}

// TrackLog emits a record only if tracking debug mode is enabled
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.Info(msg, append([]any{"trace", "tracking"}, args...)...)
	}
}
