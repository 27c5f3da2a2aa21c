package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

// Callback hooks fire around the raw pixel grab. The orchestrator
// manages window visibility itself and passes no-ops.
type Callback func()

// Capture grabs the entire virtual screen across all active displays
// and returns it PNG-encoded.
func Capture(onBeforeCapture, onAfterCapture Callback) ([]byte, error) {
	if onBeforeCapture != nil {
		onBeforeCapture()
	}

	img, err := captureVirtualScreen()

	if onAfterCapture != nil {
		onAfterCapture()
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %v", err)
	}
	return buf.Bytes(), nil
}

func captureVirtualScreen() (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}
	// Union of all display bounds
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		union = union.Union(b)
	}
	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %v", err)
	}
	return img, nil
}
