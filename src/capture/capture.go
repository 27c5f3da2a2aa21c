// Package capture sequences one full capture-and-answer cycle: hide
// the main window, grab the screen, query the vision model, parse the
// answer, and show it in the overlay. The cycle's terminal behavior is
// unconditional visible feedback: every failure path still puts the
// sentinel on screen.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screen-mcq-llm/src/answer"
	"screen-mcq-llm/src/config"
	"screen-mcq-llm/src/llm"
	"screen-mcq-llm/src/logutil"
	"screen-mcq-llm/src/screenshot"
	"screen-mcq-llm/src/winmgr"
)

// Sentinel is displayed whenever no answer token could be resolved.
const Sentinel = "N"

type ScreenshotFunc func(onBefore, onAfter screenshot.Callback) ([]byte, error)

type AnalyzeFunc func(ctx context.Context, imageData []byte) (*llm.Result, error)

// OverlayController is the slice of the presenter the cycle needs.
type OverlayController interface {
	Show(content string) error
	Hide()
}

// ReplySink receives the raw model reply for offline inspection.
type ReplySink interface {
	Write(raw string) string
}

type Options struct {
	Windows        winmgr.Manager
	TitleMarkers   []string
	TakeScreenshot ScreenshotFunc
	Analyze        AnalyzeFunc
	Overlay        OverlayController
	ReplyLog       ReplySink
	DisplayMode    string
	// SettleDelay gives window-visibility changes time to land on
	// screen before the pixels are read. Scheduling, not business
	// logic; tunable via config.
	SettleDelay time.Duration
}

type Outcome struct {
	Content  string
	Token    string
	Answered bool
	LogPath  string
}

// FromConfig wires Options to the real collaborators.
func FromConfig(cfg *config.Config, overlay OverlayController, replies ReplySink) Options {
	return Options{
		Windows:        winmgr.New(),
		TitleMarkers:   cfg.WindowTitleMarkers,
		TakeScreenshot: screenshot.Capture,
		Analyze:        llm.AnalyzeImage,
		Overlay:        overlay,
		ReplyLog:       replies,
		DisplayMode:    cfg.DisplayMode,
		SettleDelay:    time.Duration(cfg.SettleDelayMs) * time.Millisecond,
	}
}

// RunCycle executes one capture-and-answer cycle. The returned error
// describes what went wrong for logging; the overlay has already shown
// either the answer or the sentinel by the time RunCycle returns.
func RunCycle(ctx context.Context, opts Options) (out Outcome, err error) {
	if opts.TakeScreenshot == nil || opts.Analyze == nil || opts.Overlay == nil {
		return Outcome{}, errors.New("TakeScreenshot, Analyze and Overlay are required")
	}

	// Hide the main window first so it is absent from the capture;
	// remember whether it was visible so we can put it back.
	var hidden winmgr.MainWindow
	if opts.Windows != nil {
		if mw, ok := opts.Windows.FindMain(opts.TitleMarkers); ok && mw.Visible() {
			if hideErr := mw.Hide(); hideErr != nil {
				log.Printf("Cycle: failed to hide main window: %v", hideErr)
			} else {
				hidden = mw
			}
		}
	}
	// Restore only after the overlay content is resolved and shown, so
	// the restore cannot race the overlay's own window creation.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			_ = opts.Overlay.Show(Sentinel)
			out.Content = Sentinel
		}
		if hidden != nil {
			if restoreErr := hidden.Restore(); restoreErr != nil {
				log.Printf("Cycle: failed to restore main window: %v", restoreErr)
			}
		}
	}()

	// Force-destroy any stale overlay before capturing; idempotent.
	opts.Overlay.Hide()

	if opts.SettleDelay > 0 {
		select {
		case <-time.After(opts.SettleDelay):
		case <-ctx.Done():
			_ = opts.Overlay.Show(Sentinel)
			return Outcome{Content: Sentinel}, ctx.Err()
		}
	}

	out = resolveContent(ctx, opts)

	if showErr := opts.Overlay.Show(out.Content); showErr != nil {
		log.Printf("Cycle: failed to show overlay: %v", showErr)
		return out, showErr
	}

	return out, nil
}

// resolveContent runs capture, analysis and parsing, collapsing every
// recoverable failure to the sentinel.
func resolveContent(ctx context.Context, opts Options) Outcome {
	imageData, err := opts.TakeScreenshot(nil, nil)
	if err != nil {
		log.Printf("Cycle: screenshot failed: %v", err)
		return Outcome{Content: Sentinel}
	}
	log.Printf("Cycle: captured %d bytes", len(imageData))

	res, err := opts.Analyze(ctx, imageData)
	if err != nil {
		// Missing credential, transport, API, empty candidates: all
		// collapse to the sentinel. No raw text, so nothing to log.
		log.Printf("Cycle: analysis failed: %v", err)
		return Outcome{Content: Sentinel}
	}

	out := Outcome{Content: Sentinel}
	if opts.ReplyLog != nil && res.Raw != "" {
		out.LogPath = opts.ReplyLog.Write(res.Raw)
	}

	if !res.Answered {
		// Either NO_MCQ or an unparsable reply; both display the
		// sentinel, the reply log tells them apart.
		log.Printf("Cycle: no answer token (reply: %q)", logutil.SanitizeForLog(res.Raw, 80))
		return out
	}

	out.Token = res.Token
	out.Answered = true
	out.Content = res.Token
	if opts.DisplayMode == config.DisplayModePreview {
		if preview := answer.Preview(res.Raw, res.Token); preview != "" {
			out.Content = preview
		}
	}

	log.Printf("Cycle: resolved token %q, displaying %q", out.Token, out.Content)
	return out
}
