// gaze-sim runs a stand-in eye tracker that streams synthetic frames to gaze clients.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/simulator"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var (
	flagPort           string
	flagRate           int
	flagWidth          int
	flagHeight         int
	flagStreaming      bool
	flagAutoStartDelay time.Duration
	flagAutoStartFail  bool
	flagLogLevel       string
	flagDebug          bool
	flagHelp           bool
)

func init() {
	flag.StringVarP(&flagPort, "port", "p", config.SimulatorPort(), "Listen port")
	flag.IntVarP(&flagRate, "rate", "r", 60, "Frames per second while streaming")
	flag.IntVarP(&flagWidth, "width", "x", 1920, "Screen width in pixels")
	flag.IntVarP(&flagHeight, "height", "y", 1080, "Screen height in pixels")
	flag.BoolVarP(&flagStreaming, "streaming", "s", false, "Stream from startup instead of waiting for auto-start")
	flag.DurationVar(&flagAutoStartDelay, "autostart-delay", 500*time.Millisecond, "Time an auto-start takes")
	flag.BoolVar(&flagAutoStartFail, "autostart-fail", false, "Make every auto-start fail")
	flag.StringVar(&flagLogLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.BoolVar(&flagDebug, "debug", false, "Enable verbose debug logging")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

func main() {
	flag.Parse()
	if flagHelp {
		fmt.Fprintln(os.Stderr, "Usage: gaze-sim [OPTION]...")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if flagDebug {
		flagLogLevel = "debug"
	}
	log.Init(flagLogLevel)
	debug.Enable(flagDebug, false)

	if flagWidth < 2 || flagHeight < 2 || flagWidth > math.MaxInt32 || flagHeight > math.MaxInt32 {
		fmt.Fprintf(os.Stderr, "gaze-sim: screen must be 2..%d pixels per side, got %dx%d\n",
			math.MaxInt32, flagWidth, flagHeight)
		os.Exit(2)
	}

	cfg := simulator.DefaultConfig()
	cfg.FrameRate = flagRate
	cfg.Screen = tracking.ViewportGeometry{
		Point11: tracking.Point{X: int32(flagWidth - 1), Y: int32(flagHeight - 1)},
	}
	cfg.StartStreaming = flagStreaming
	cfg.AutoStartDelay = flagAutoStartDelay
	cfg.AutoStartSucceeds = !flagAutoStartFail

	sim, err := simulator.NewServer(cfg)
	if err != nil {
		log.Error("invalid simulator configuration", "error", err)
		os.Exit(1)
	}

	addr := ":" + flagPort
	color.New(color.FgCyan, color.Bold).Printf("gaze-sim %s\n", tracking.LibraryVersion)
	fmt.Printf("  tracker   ws://localhost%s/ws/tracker\n", addr)
	fmt.Printf("  api       http://localhost%s/api/health\n", addr)
	if flagAutoStartFail {
		color.Yellow("  auto-start will fail")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- sim.Start(addr) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if err != nil {
			log.Error("simulator stopped", "error", err)
			os.Exit(1)
		}
	}
	if err := sim.Shutdown(); err != nil {
		log.Warn("shutdown", "error", err)
	}
}
