// Package winmgr locates and toggles the application's own main
// window among all visible top-level windows.
package winmgr

import "strings"

// WindowInfo describes one visible top-level window.
type WindowInfo struct {
	Handle uintptr
	Title  string
}

// MainWindow is the handle the orchestrator hides before capture and
// restores afterwards.
type MainWindow interface {
	// Visible reports whether the window is currently shown.
	Visible() bool
	Hide() error
	Restore() error
}

// Manager enumerates windows and resolves the main window by title
// markers.
type Manager interface {
	// FindMain returns (nil, false) when no window matches.
	FindMain(markers []string) (MainWindow, bool)
}

// New returns the platform manager.
func New() Manager { return newPlatformManager() }

// MatchMain picks the first window whose title contains one of the
// markers (the dev-server origin or the packaged app title). Pure, so
// the selection rule is testable without a window system.
func MatchMain(windows []WindowInfo, markers []string) (WindowInfo, bool) {
	for _, w := range windows {
		for _, m := range markers {
			if m != "" && strings.Contains(w.Title, m) {
				return w, true
			}
		}
	}
	return WindowInfo{}, false
}
