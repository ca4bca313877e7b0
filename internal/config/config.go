// Package config provides configuration helpers for go-gaze commands.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Defaults used when the corresponding environment variable is not set.
const (
	DefaultSimulatorPort = "7490"
	DefaultDashboardPort = "7491"
	DefaultFriendlyName  = "go-gaze"
	DefaultLogLevel      = "info"
)

// TrackerURL returns the tracker websocket URL from GAZE_TRACKER_URL.
// Falls back to the local simulator endpoint.
func TrackerURL() string {
	if u := os.Getenv("GAZE_TRACKER_URL"); u != "" {
		return u
	}
	return fmt.Sprintf("ws://localhost:%s/ws/tracker", DefaultSimulatorPort)
}

// HealthURL derives the tracker's HTTP health endpoint from its websocket URL.
// ws:// maps to http://, wss:// to https://, and the path becomes /api/health.
func HealthURL(trackerURL string) (string, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return "", fmt.Errorf("config: invalid tracker url %q: %w", trackerURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("config: unsupported tracker url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("config: tracker url %q has no host", trackerURL)
	}
	u.Path = "/api/health"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// SimulatorPort returns the simulator listen port from GAZE_SIM_PORT or default.
func SimulatorPort() string {
	if p := os.Getenv("GAZE_SIM_PORT"); p != "" {
		return p
	}
	return DefaultSimulatorPort
}

// DashboardPort returns the dashboard listen port from GAZE_DASHBOARD_PORT or default.
func DashboardPort() string {
	if p := os.Getenv("GAZE_DASHBOARD_PORT"); p != "" {
		return p
	}
	return DefaultDashboardPort
}

// FriendlyName returns the client name shown by the tracker from GAZE_FRIENDLY_NAME or default.
func FriendlyName() string {
	if n := os.Getenv("GAZE_FRIENDLY_NAME"); n != "" {
		return n
	}
	return DefaultFriendlyName
}

// RecordPath returns the SQLite recording path from GAZE_RECORD_PATH.
// Empty means recording is disabled.
func RecordPath() string {
	return os.Getenv("GAZE_RECORD_PATH")
}

// LogLevel returns the log level from GAZE_LOG_LEVEL or default.
func LogLevel() string {
	if l := os.Getenv("GAZE_LOG_LEVEL"); l != "" {
		return l
	}
	return DefaultLogLevel
}
