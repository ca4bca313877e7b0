package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/teslashibe/go-gaze/pkg/hud"
	"github.com/teslashibe/go-gaze/pkg/tracking"
)

var (
	outMu sync.Mutex

	dim    = color.New(color.Faint)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
)

func statusColor(s tracking.ReceptionStatus) *color.Color {
	switch s {
	case tracking.Receiving:
		return green
	case tracking.AttemptingAutoStart:
		return yellow
	default:
		return red
	}
}

func confidenceColor(c tracking.Confidence) *color.Color {
	switch c {
	case tracking.High:
		return green
	case tracking.Medium, tracking.Low:
		return yellow
	default:
		return red
	}
}

func printStatus(s tracking.ReceptionStatus) {
	outMu.Lock()
	defer outMu.Unlock()
	dim.Print("status ")
	statusColor(s).Println(s.String())
}

func printNotice(format string, args ...any) {
	outMu.Lock()
	defer outMu.Unlock()
	cyan.Printf(format+"\n", args...)
}

// printFrame prints one line per frame with the user's gaze and head position.
func printFrame(f *tracking.Frame, ts tracking.Timestamp) {
	outMu.Lock()
	defer outMu.Unlock()

	dim.Printf("%10s ", ts)
	if !f.HasUser() {
		fmt.Println("no user")
		return
	}
	u := f.User

	g := u.UnifiedScreenGaze
	fmt.Print("gaze ")
	confidenceColor(g.Confidence).Printf("%-6s", g.Confidence)
	if g.Confidence.Tracked() {
		fmt.Printf(" (%5d, %5d)", g.PointOfRegard.X, g.PointOfRegard.Y)
	} else {
		fmt.Print("              ")
	}

	hp := u.HeadPose
	fmt.Print("  head ")
	confidenceColor(hp.Confidence).Printf("%-6s", hp.Confidence)
	if hp.Confidence.Tracked() {
		fmt.Printf(" (%+.3f, %+.3f, %+.3f) m", hp.Translation.X, hp.Translation.Y, hp.Translation.Z)
	}
	if f.HasCamera() {
		c := f.Camera.EyeComponent.Add(f.Camera.HeadComponent)
		fmt.Printf("  cam yaw %+.3f pitch %+.3f", c.Yaw, c.Pitch)
	}
	fmt.Println()
}

func printHUD(o *hud.Overlay) {
	ops := o.Opacities()
	names := make([]string, 0, len(ops))
	for n := range ops {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s=%.2f", n, ops[n]))
	}

	outMu.Lock()
	defer outMu.Unlock()
	dim.Println("hud " + strings.Join(parts, " "))
}
