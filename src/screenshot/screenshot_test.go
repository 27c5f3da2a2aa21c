package screenshot

import "testing"

// Capture talks to the real display server, so headless CI only gets
// the callback-ordering contract exercised here.
func TestCaptureInvokesCallbacks(t *testing.T) {
	var order []string

	_, err := Capture(
		func() { order = append(order, "before") },
		func() { order = append(order, "after") },
	)
	// Capture may fail without a display; callbacks must still fire in order.
	if len(order) != 2 || order[0] != "before" || order[1] != "after" {
		t.Fatalf("Expected callbacks [before after], got %v (capture err: %v)", order, err)
	}
}

func TestCaptureNilCallbacks(t *testing.T) {
	// Must not panic with nil hooks.
	_, _ = Capture(nil, nil)
}
