package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"screen-mcq-llm/src/answer"
	"screen-mcq-llm/src/config"
	"screen-mcq-llm/src/llm"
	"screen-mcq-llm/src/screenshot"
	"screen-mcq-llm/src/winmgr"
)

type fakeOverlay struct {
	shown  []string
	hidden int
}

func (f *fakeOverlay) Show(content string) error {
	f.shown = append(f.shown, content)
	return nil
}

func (f *fakeOverlay) Hide() { f.hidden++ }

type fakeSink struct{ writes []string }

func (f *fakeSink) Write(raw string) string {
	f.writes = append(f.writes, raw)
	return "logs/reply_test.log"
}

type fakeMainWindow struct {
	visible  bool
	hides    int
	restores int
}

func (f *fakeMainWindow) Visible() bool { return f.visible }

func (f *fakeMainWindow) Hide() error {
	f.hides++
	f.visible = false
	return nil
}

func (f *fakeMainWindow) Restore() error {
	f.restores++
	f.visible = true
	return nil
}

type fakeManager struct{ mw *fakeMainWindow }

func (f *fakeManager) FindMain(markers []string) (winmgr.MainWindow, bool) {
	if f.mw == nil {
		return nil, false
	}
	return f.mw, true
}

func staticScreenshot(onBefore, onAfter screenshot.Callback) ([]byte, error) {
	return []byte{0x89, 0x50, 0x4E, 0x47}, nil
}

// analyzeReply derives Answered/Token with the real parser, the same
// way llm.AnalyzeImage does.
func analyzeReply(raw string) AnalyzeFunc {
	return func(ctx context.Context, imageData []byte) (*llm.Result, error) {
		res := &llm.Result{Raw: raw, FinishReason: "STOP"}
		if !answer.IsNoMCQ(raw) {
			res.Token, res.Answered = answer.Extract(raw)
		}
		return res, nil
	}
}

func baseOptions(ov *fakeOverlay, sink *fakeSink, analyze AnalyzeFunc) Options {
	return Options{
		TakeScreenshot: staticScreenshot,
		Analyze:        analyze,
		Overlay:        ov,
		ReplyLog:       sink,
		DisplayMode:    config.DisplayModeToken,
	}
}

func TestRunCycleSuccess(t *testing.T) {
	ov := &fakeOverlay{}
	sink := &fakeSink{}
	reply := "What is 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nArithmetic.\nANSWER: B"

	out, err := RunCycle(context.Background(), baseOptions(ov, sink, analyzeReply(reply)))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if out.Token != "b" || !out.Answered {
		t.Errorf("Expected answered token 'b', got %+v", out)
	}
	if len(ov.shown) != 1 || ov.shown[0] != "b" {
		t.Errorf("Expected overlay to show 'b', got %v", ov.shown)
	}
	if ov.hidden == 0 {
		t.Error("Expected a forced overlay teardown before capture")
	}
	if len(sink.writes) != 1 || sink.writes[0] != reply {
		t.Error("Expected raw reply to reach the diagnostic log")
	}
}

func TestRunCyclePreviewMode(t *testing.T) {
	ov := &fakeOverlay{}
	reply := "What is 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nANSWER: B"

	opts := baseOptions(ov, &fakeSink{}, analyzeReply(reply))
	opts.DisplayMode = config.DisplayModePreview

	out, err := RunCycle(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if out.Content != "b) 4" {
		t.Errorf("Expected preview content 'b) 4', got %q", out.Content)
	}
}

func TestRunCycleNoMCQ(t *testing.T) {
	ov := &fakeOverlay{}
	sink := &fakeSink{}

	out, err := RunCycle(context.Background(), baseOptions(ov, sink, analyzeReply("NO_MCQ")))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if out.Content != Sentinel {
		t.Errorf("Expected sentinel content, got %q", out.Content)
	}
	if len(ov.shown) != 1 || ov.shown[0] != Sentinel {
		t.Errorf("Expected overlay to show sentinel, got %v", ov.shown)
	}
	// The literal NO_MCQ reply still reaches the diagnostic log.
	if len(sink.writes) != 1 || sink.writes[0] != "NO_MCQ" {
		t.Error("Expected NO_MCQ reply in the diagnostic log")
	}
}

func TestRunCycleAnalysisError(t *testing.T) {
	ov := &fakeOverlay{}
	sink := &fakeSink{}
	analyze := func(ctx context.Context, imageData []byte) (*llm.Result, error) {
		return nil, errors.New("network unreachable")
	}

	out, err := RunCycle(context.Background(), baseOptions(ov, sink, analyze))
	if err != nil {
		t.Fatalf("Analysis failure must not fail the cycle: %v", err)
	}

	if out.Content != Sentinel {
		t.Errorf("Expected sentinel content, got %q", out.Content)
	}
	if len(ov.shown) != 1 || ov.shown[0] != Sentinel {
		t.Errorf("Expected overlay to show sentinel, got %v", ov.shown)
	}
	// No raw text, so no diagnostic log.
	if len(sink.writes) != 0 {
		t.Errorf("Expected no diagnostic log on transport error, got %v", sink.writes)
	}
}

func TestRunCycleMissingCredential(t *testing.T) {
	ov := &fakeOverlay{}
	sink := &fakeSink{}
	// llm.AnalyzeImage fails fast on a missing key before any network
	// traffic; the cycle must still complete with the sentinel.
	analyze := func(ctx context.Context, imageData []byte) (*llm.Result, error) {
		return nil, llm.ErrMissingAPIKey
	}

	out, err := RunCycle(context.Background(), baseOptions(ov, sink, analyze))
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if out.Content != Sentinel {
		t.Errorf("Expected sentinel, got %q", out.Content)
	}
	if len(sink.writes) != 0 {
		t.Error("Expected no diagnostic log without a reply")
	}
}

func TestRunCycleScreenshotFailure(t *testing.T) {
	ov := &fakeOverlay{}
	analyzeCalled := false
	opts := Options{
		TakeScreenshot: func(onBefore, onAfter screenshot.Callback) ([]byte, error) {
			return nil, errors.New("no active displays found")
		},
		Analyze: func(ctx context.Context, imageData []byte) (*llm.Result, error) {
			analyzeCalled = true
			return nil, nil
		},
		Overlay: ov,
	}

	out, err := RunCycle(context.Background(), opts)
	if err != nil {
		t.Fatalf("Screenshot failure must still end in visible feedback: %v", err)
	}
	if out.Content != Sentinel {
		t.Errorf("Expected sentinel, got %q", out.Content)
	}
	if analyzeCalled {
		t.Error("Expected analysis to be skipped after capture failure")
	}
	if len(ov.shown) != 1 || ov.shown[0] != Sentinel {
		t.Errorf("Expected overlay to show sentinel, got %v", ov.shown)
	}
}

func TestRunCycleHidesAndRestoresMainWindow(t *testing.T) {
	ov := &fakeOverlay{}
	mw := &fakeMainWindow{visible: true}

	opts := baseOptions(ov, &fakeSink{}, analyzeReply("ANSWER: A"))
	opts.Windows = &fakeManager{mw: mw}
	opts.TitleMarkers = []string{"Screen MCQ"}

	if _, err := RunCycle(context.Background(), opts); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if mw.hides != 1 {
		t.Errorf("Expected one hide, got %d", mw.hides)
	}
	if mw.restores != 1 {
		t.Errorf("Expected one restore, got %d", mw.restores)
	}
	if !mw.visible {
		t.Error("Expected main window visible again after the cycle")
	}
}

func TestRunCycleLeavesHiddenWindowAlone(t *testing.T) {
	ov := &fakeOverlay{}
	mw := &fakeMainWindow{visible: false}

	opts := baseOptions(ov, &fakeSink{}, analyzeReply("ANSWER: A"))
	opts.Windows = &fakeManager{mw: mw}

	if _, err := RunCycle(context.Background(), opts); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if mw.hides != 0 || mw.restores != 0 {
		t.Errorf("Expected no visibility changes, got hides=%d restores=%d", mw.hides, mw.restores)
	}
}

func TestRunCyclePanicStillShowsSentinel(t *testing.T) {
	ov := &fakeOverlay{}
	opts := baseOptions(ov, &fakeSink{}, func(ctx context.Context, imageData []byte) (*llm.Result, error) {
		panic("boom")
	})

	out, err := RunCycle(context.Background(), opts)
	if err == nil {
		t.Fatal("Expected an error describing the panic")
	}
	if out.Content != Sentinel {
		t.Errorf("Expected sentinel after panic, got %q", out.Content)
	}
	found := false
	for _, s := range ov.shown {
		if s == Sentinel {
			found = true
		}
	}
	if !found {
		t.Error("Expected overlay to show sentinel after panic")
	}
}

func TestRunCycleCancelledDuringSettle(t *testing.T) {
	ov := &fakeOverlay{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := baseOptions(ov, &fakeSink{}, analyzeReply("ANSWER: A"))
	opts.SettleDelay = 500 * time.Millisecond

	out, err := RunCycle(ctx, opts)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if out.Content != Sentinel {
		t.Errorf("Expected sentinel on cancellation, got %q", out.Content)
	}
}
