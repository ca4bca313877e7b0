package main

import (
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/tracking"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o Options)
	}{
		{
			name: "defaults",
			args: []string{"poll"},
			check: func(t *testing.T, o Options) {
				if o.Mode != "poll" || o.PollInterval != 100*time.Millisecond {
					t.Errorf("got %+v", o)
				}
				if o.viewport().Width() != 1920 || o.viewport().Height() != 1080 {
					t.Errorf("viewport = %+v", o.viewport())
				}
			},
		},
		{
			name: "dashboard with recording",
			args: []string{"--record", "/tmp/g.db", "-p", "8080", "--debug-frames", "dashboard"},
			check: func(t *testing.T, o Options) {
				if o.Record != "/tmp/g.db" || o.Port != "8080" || !o.DebugFrames {
					t.Errorf("got %+v", o)
				}
			},
		},
		{
			name: "viewport",
			args: []string{"-x", "800", "-y", "600", "sync"},
			check: func(t *testing.T, o Options) {
				want := tracking.ViewportGeometry{Point11: tracking.Point{X: 799, Y: 599}}
				if o.viewport() != want {
					t.Errorf("viewport = %+v", o.viewport())
				}
			},
		},
		{
			name: "debug flags raise log level",
			args: []string{"--log-level", "warn", "--debug-frames", "async"},
			check: func(t *testing.T, o Options) {
				if o.LogLevel != "debug" {
					t.Errorf("LogLevel = %q, want debug", o.LogLevel)
				}
			},
		},
		{
			name: "log level kept without debug flags",
			args: []string{"--log-level", "warn", "async"},
			check: func(t *testing.T, o Options) {
				if o.LogLevel != "warn" {
					t.Errorf("LogLevel = %q, want warn", o.LogLevel)
				}
			},
		},
		{name: "no mode", args: nil, wantErr: true},
		{name: "unknown mode", args: []string{"replay"}, wantErr: true},
		{name: "two modes", args: []string{"poll", "sync"}, wantErr: true},
		{name: "bad viewport", args: []string{"-x", "0", "poll"}, wantErr: true},
		{name: "viewport beyond int32", args: []string{"-y", "4294967296", "poll"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestModesRegistered(t *testing.T) {
	for _, m := range []string{"poll", "sync", "async", "autostart", "dashboard"} {
		if modes[m] == nil {
			t.Errorf("mode %q missing", m)
		}
	}
}
