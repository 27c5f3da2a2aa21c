// Package eventloop is the single-threaded coordinator for the
// resident app. It is the "external caller" the capture pipeline
// expects: it never starts a new cycle while one is in flight.
package eventloop

import (
	"context"
	"log"
	"time"

	"screen-mcq-llm/src/capture"
	"screen-mcq-llm/src/config"
	"screen-mcq-llm/src/hotkey"
	"screen-mcq-llm/src/tray"
	"screen-mcq-llm/src/worker"
)

type Loop struct {
	opts           capture.Options
	pool           *worker.Pool
	busy           bool
	results        chan result
	triggerCh      chan struct{}
	defaultTooltip string
	deadline       time.Duration
}

type result struct {
	out    capture.Outcome
	err    error
	cancel context.CancelFunc
}

// New creates an event loop running cycles built from opts. If cfg is
// nil or cfg.AnswerDeadlineSec <= 0, a 20s per-cycle deadline is used.
func New(cfg *config.Config, opts capture.Options) *Loop {
	deadlineSec := 20
	if cfg != nil && cfg.AnswerDeadlineSec > 0 {
		deadlineSec = cfg.AnswerDeadlineSec
	}

	return &Loop{
		opts:           opts,
		pool:           worker.New(1),
		results:        make(chan result, 1),
		triggerCh:      make(chan struct{}, 4),
		defaultTooltip: "Screen MCQ Tool",
		deadline:       time.Duration(deadlineSec) * time.Second,
	}
}

// SetDefaultTooltip optionally sets the tray tooltip base text.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

// Deadline returns the configured per-cycle deadline.
func (l *Loop) Deadline() time.Duration { return l.deadline }

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if b {
		tray.UpdateTooltip("Screen MCQ: answering...")
	} else {
		tray.UpdateTooltip(l.defaultTooltip)
	}
}

// StartHotkey registers the global hotkey and posts events into the
// loop.
func (l *Loop) StartHotkey(combo string) {
	if combo == "" {
		return
	}
	hotkey.Listen(combo, l.TriggerCapture)
}

// TriggerCapture requests a cycle; used by the hotkey and the tray
// menu. Drops the request when the loop's queue is full.
func (l *Loop) TriggerCapture() {
	select {
	case l.triggerCh <- struct{}{}:
	default:
	}
}

// Run processes trigger and result events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggerCh:
			l.handleTrigger(ctx)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	if l.busy {
		log.Printf("handleTrigger: busy, skipping")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)

	submitted := l.pool.Submit(jobCtx,
		func(c context.Context) (capture.Outcome, error) {
			return capture.RunCycle(c, l.opts)
		},
		func(out capture.Outcome, err error) {
			l.results <- result{out: out, err: err, cancel: cancel}
		})
	if !submitted {
		cancel()
		l.setBusy(false)
		log.Printf("handleTrigger: pool full, dropping request")
	}
}

func (l *Loop) handleResult(res result) {
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
	}()

	if res.err != nil {
		log.Printf("handleResult: cycle error: %v", res.err)
		return
	}
	log.Printf("handleResult: displayed %q (answered=%v)", res.out.Content, res.out.Answered)
}
