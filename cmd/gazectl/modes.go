package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/hud"
	"github.com/teslashibe/go-gaze/pkg/tracking"
	"github.com/teslashibe/go-gaze/pkg/web"
)

type modeFunc func(ctx context.Context, a *app) error

var modes = map[string]modeFunc{
	"poll":      runPoll,
	"sync":      runSync,
	"async":     runAsync,
	"autostart": runAutoStart,
	"dashboard": runDashboard,
}

// runPoll reads the latest frame on every tick and prints it when it changed,
// the way a game reads tracking once per rendered frame.
func runPoll(ctx context.Context, a *app) error {
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	last := tracking.NullDataTimestamp
	status := a.client.ReceptionStatus()
	printStatus(status)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if s := a.client.ReceptionStatus(); s != status {
			status = s
			printStatus(s)
		}
		f, ts := a.client.LatestFrameWithTimestamp()
		if ts == last {
			continue
		}
		last = ts
		printFrame(&f, ts)
	}
}

// runSync blocks on each new frame.
func runSync(ctx context.Context, a *app) error {
	last := tracking.NullDataTimestamp
	timeouts := 0
	for ctx.Err() == nil {
		if !a.client.WaitForUpdate(&last, a.opts.Timeout) {
			timeouts++
			if timeouts == 1 || timeouts%10 == 0 {
				printNotice("no frame within %s (status %s)", a.opts.Timeout, a.client.ReceptionStatus())
			}
			continue
		}
		timeouts = 0
		f := a.client.LatestFrame()
		printFrame(&f, last)
	}
	return nil
}

// runAsync prints frames and status changes from a listener, and animates the
// HUD corner overlay from the same feed.
func runAsync(ctx context.Context, a *app) error {
	overlay := hud.NewOverlay()
	var frames int
	frameCh := make(chan struct{}, 1)

	handles := make([]tracking.ListenerHandle, 0, 2)
	h, err := a.client.RegisterListener(tracking.ListenerFuncs{
		Status: printStatus,
		Frame: func(f *tracking.Frame, ts tracking.Timestamp) {
			printFrame(f, ts)
			select {
			case frameCh <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	handles = append(handles, h)
	if h, err = a.client.RegisterListener(overlay); err != nil {
		return err
	}
	handles = append(handles, h)
	defer func() {
		for _, h := range handles {
			a.client.UnregisterListener(h)
		}
	}()

	const step = 50 * time.Millisecond
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("async consumer stopped", "frames", frames)
			return nil
		case <-frameCh:
			frames++
		case <-ticker.C:
			ticks++
			overlay.Update(step)
			if ticks%20 == 0 && a.client.ReceptionStatus() == tracking.Receiving {
				printHUD(overlay)
			}
		}
	}
}

// runAutoStart requests auto-start and waits for the tracker to either stream or give up.
func runAutoStart(ctx context.Context, a *app) error {
	done := make(chan tracking.ReceptionStatus, 4)
	h, err := a.client.RegisterListener(tracking.ListenerFuncs{
		Status: func(s tracking.ReceptionStatus) {
			printStatus(s)
			if s != tracking.AttemptingAutoStart {
				select {
				case done <- s:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	defer a.client.UnregisterListener(h)

	// The producer connects in the background; give it a moment before asking.
	wait := time.NewTimer(500 * time.Millisecond)
	select {
	case <-ctx.Done():
		wait.Stop()
		return ctx.Err()
	case <-wait.C:
	}

	if a.client.ReceptionStatus() == tracking.Receiving {
		printNotice("already receiving")
		return nil
	}
	if !a.client.AttemptAutoStart() {
		return errors.New("auto-start request rejected: tracker unavailable")
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("auto-start still pending: %w", ctx.Err())
		case s := <-done:
			if s == tracking.Receiving {
				printNotice("auto-start succeeded")
				return nil
			}
			return errors.New("auto-start failed")
		}
	}
}

// runDashboard serves the web dashboard until ctx ends.
func runDashboard(ctx context.Context, a *app) error {
	cfg := web.DefaultConfig()
	cfg.Addr = ":" + a.opts.Port
	cfg.MaxFrameRate = a.opts.MaxFrameRate
	cfg.Metrics = a.metrics.Handler()
	if a.rec != nil {
		cfg.Recordings = a.rec
	}

	srv, err := web.NewServer(a.client, cfg)
	if err != nil {
		return err
	}
	h, err := a.client.RegisterListener(srv)
	if err != nil {
		return err
	}
	defer a.client.UnregisterListener(h)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	printNotice("dashboard on http://localhost%s (metrics at /metrics)", cfg.Addr)

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return err
		}
	}
	return srv.Shutdown()
}
