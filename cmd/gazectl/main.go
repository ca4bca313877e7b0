// gazectl connects to an eye tracker and consumes its frames the different ways a
// game can: polling, blocking waits, push listeners or a live web dashboard.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/client"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/producer"
	"github.com/teslashibe/go-gaze/pkg/recorder"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

// Options holds the parsed command line.
type Options struct {
	Mode         string
	URL          string
	Name         string
	Width        int
	Height       int
	Duration     time.Duration
	PollInterval time.Duration
	Timeout      time.Duration
	AutoStart    bool
	Record       string
	Port         string
	MaxFrameRate int
	LogLevel     string
	Debug        bool
	DebugFrames  bool
}

// maxViewportSide keeps corner coordinates inside int32.
const maxViewportSide = math.MaxInt32

const usage = `Usage: gazectl [OPTION]... MODE

Modes:
  poll       read the latest frame on a fixed interval
  sync       block on each new frame
  async      receive frames and status changes through a listener
  autostart  ask the tracker to start and report the outcome
  dashboard  serve the web dashboard, metrics and websocket feeds

Options:`

func parseFlags(args []string) (Options, error) {
	o := Options{}
	fs := flag.NewFlagSet("gazectl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&o.URL, "url", "u", config.TrackerURL(), "Tracker websocket URL")
	fs.StringVarP(&o.Name, "name", "n", config.FriendlyName(), "Friendly name shown by the tracker")
	fs.IntVarP(&o.Width, "width", "x", 1920, "Viewport width in pixels")
	fs.IntVarP(&o.Height, "height", "y", 1080, "Viewport height in pixels")
	fs.DurationVarP(&o.Duration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	fs.DurationVar(&o.PollInterval, "interval", 100*time.Millisecond, "Poll interval")
	fs.DurationVar(&o.Timeout, "timeout", tracking.DefaultWaitTimeout, "Wait timeout in sync mode")
	fs.BoolVarP(&o.AutoStart, "autostart", "a", false, "Request auto-start before consuming frames")
	fs.StringVarP(&o.Record, "record", "r", config.RecordPath(), "Record samples into this SQLite file")
	fs.StringVarP(&o.Port, "port", "p", config.DashboardPort(), "Dashboard listen port")
	fs.IntVar(&o.MaxFrameRate, "max-frame-rate", 30, "Frames per second pushed to dashboard websockets")
	fs.StringVar(&o.LogLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	fs.BoolVar(&o.Debug, "debug", false, "Enable verbose debug logging")
	fs.BoolVar(&o.DebugFrames, "debug-frames", false, "Trace every frame (very verbose)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, fmt.Errorf("expected exactly one mode")
	}
	o.Mode = fs.Arg(0)
	if _, ok := modes[o.Mode]; !ok {
		return o, fmt.Errorf("unknown mode %q", o.Mode)
	}
	if o.Width <= 0 || o.Height <= 0 || o.Width > maxViewportSide || o.Height > maxViewportSide {
		return o, fmt.Errorf("viewport must be 1..%d pixels per side, got %dx%d", maxViewportSide, o.Width, o.Height)
	}
	if o.Debug || o.DebugFrames {
		o.LogLevel = "debug"
	}
	return o, nil
}

func (o Options) viewport() tracking.ViewportGeometry {
	return tracking.ViewportGeometry{
		Point11: tracking.Point{X: int32(o.Width - 1), Y: int32(o.Height - 1)},
	}
}

// app is what every mode runs against.
type app struct {
	opts    Options
	client  *client.Client
	metrics *metrics.Metrics
	rec     *recorder.Recorder
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "gazectl:", err)
		os.Exit(2)
	}

	log.Init(opts.LogLevel)
	debug.Enable(opts.Debug, opts.DebugFrames)

	a, err := setup(opts)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	if opts.AutoStart && opts.Mode != "autostart" {
		a.client.AttemptAutoStart()
	}
	if err := modes[opts.Mode](ctx, a); err != nil {
		log.Error("mode failed", "mode", opts.Mode, "error", err)
		a.close()
		os.Exit(1)
	}
}

func setup(opts Options) (*app, error) {
	p, err := producer.NewWebSocket(
		producer.WithURL(opts.URL),
		producer.WithFriendlyName(opts.Name),
		producer.WithViewport(opts.viewport()),
	)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	cl, err := client.New(opts.Name, opts.viewport(), p, client.WithObserver(m))
	if err != nil {
		p.Close()
		return nil, err
	}

	a := &app{opts: opts, client: cl, metrics: m}
	if opts.Record != "" {
		rec, err := recorder.Open(opts.Record)
		if err != nil {
			cl.Close()
			return nil, err
		}
		if _, err := cl.RegisterListener(rec); err != nil {
			rec.Close()
			cl.Close()
			return nil, err
		}
		a.rec = rec
		log.Info("recording", "path", opts.Record)
	}
	return a, nil
}

// close is safe to call more than once.
func (a *app) close() {
	a.client.Close()
	if a.rec != nil {
		a.rec.Close()
	}
}
