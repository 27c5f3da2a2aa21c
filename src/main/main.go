package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"screen-mcq-llm/src/capture"
	"screen-mcq-llm/src/clipboard"
	"screen-mcq-llm/src/config"
	"screen-mcq-llm/src/eventloop"
	"screen-mcq-llm/src/llm"
	"screen-mcq-llm/src/logutil"
	"screen-mcq-llm/src/overlay"
	"screen-mcq-llm/src/replylog"
	"screen-mcq-llm/src/singleinstance"
	"screen-mcq-llm/src/tray"
)

// normalizeFlagDashes maps GNU-style --run-once to Go's -run-once
func normalizeFlagDashes() {
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if strings.HasPrefix(arg, "--") && len(arg) > 2 {
			os.Args[i] = arg[1:]
		}
	}
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// Keep the main goroutine off the overlay thread's message queue
	runtime.LockOSThread()

	runOnce := flag.Bool("run-once", false, "Answer the on-screen question once, copy the result, and exit")
	apiKeyPath := flag.String("api-key-path", "", "Override path to the API key file")
	displayMode := flag.String("display-mode", "", "Overlay display mode: token or preview")
	normalizeFlagDashes()
	flag.Parse()

	loadOpts := config.LoadOptions{
		APIKeyPathOverride:  *apiKeyPath,
		DisplayModeOverride: *displayMode,
	}

	if *runOnce {
		runCycleOnce(loadOpts)
		return
	}

	runResident(loadOpts)
}

func runResident(loadOpts config.LoadOptions) {
	// One resident at a time; the claim is held for the process lifetime.
	claim, err := singleinstance.Claim()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer claim.Close()

	cfg, err := config.LoadWithOptions(loadOpts)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logutil.Setup(cfg.EnableFileLogging)

	initLLM(cfg)

	presenter := overlay.New(time.Duration(cfg.OverlayDismissSec) * time.Second)
	defer presenter.Cleanup()
	replies := replylog.New(cfg.ReplyLogDir)

	log.Printf("Screen MCQ Tool initialized")
	log.Printf("Using model: %s", cfg.Model)
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("Display mode: %s, overlay dismiss: %ds", cfg.DisplayMode, cfg.OverlayDismissSec)

	loop := eventloop.New(cfg, capture.FromConfig(cfg, presenter, replies))
	loop.SetDefaultTooltip(fmt.Sprintf("Screen MCQ Tool - Press %s to answer", cfg.Hotkey))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trayIcon, _ := tray.New(tray.Config{
		Title:     "Screen MCQ Tool",
		Tooltip:   fmt.Sprintf("Screen MCQ Tool - Press %s to answer", cfg.Hotkey),
		OnCapture: loop.TriggerCapture,
		OnExit:    cancel,
	})
	go trayIcon.Run()
	defer trayIcon.Destroy()

	loop.StartHotkey(cfg.Hotkey)

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if err := loop.Run(ctx); err != nil {
		log.Printf("event loop stopped: %v", err)
	}
}

// runCycleOnce performs a single cycle, copies the result, and exits
// after the overlay has been visible.
func runCycleOnce(loadOpts config.LoadOptions) {
	cfg, err := config.LoadWithOptions(loadOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logutil.Setup(cfg.EnableFileLogging)

	initLLM(cfg)

	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable: %v", err)
	}

	presenter := overlay.New(time.Duration(cfg.OverlayDismissSec) * time.Second)
	defer presenter.Cleanup()
	replies := replylog.New(cfg.ReplyLogDir)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.AnswerDeadlineSec)*time.Second)
	defer cancel()

	out, err := capture.RunCycle(ctx, capture.FromConfig(cfg, presenter, replies))
	if err != nil {
		log.Printf("Cycle error: %v", err)
	}
	log.Printf("Displayed %q (answered=%v)", out.Content, out.Answered)

	if err := clipboard.Write(out.Content); err != nil {
		log.Printf("Failed to write clipboard: %v", err)
	}

	// Keep the process alive long enough for the overlay to be seen.
	time.Sleep(time.Duration(cfg.OverlayDismissSec) * time.Second)
}

// initLLM configures the client. A missing key is deliberately not
// fatal: the cycle short-circuits and shows the sentinel instead.
func initLLM(cfg *config.Config) {
	llm.Init(&llm.Config{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Endpoint: cfg.Endpoint,
	})

	if cfg.APIKey == "" {
		log.Printf("No API key found (checked %s and GEMINI_API_KEY); cycles will show %q", cfg.APIKeyPath, capture.Sentinel)
		return
	}
	log.Printf("API key loaded: %s", logutil.RedactKey(cfg.APIKey))

	pingCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := llm.Ping(pingCtx); err != nil {
		log.Printf("Startup check failed: %v (continuing; cycles may show %q)", err, capture.Sentinel)
		return
	}
	log.Printf("LLM ping succeeded")
}
