//go:build windows

package winmgr

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows     = user32.NewProc("EnumWindows")
	procGetWindowText   = user32.NewProc("GetWindowTextW")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procShowWindow      = user32.NewProc("ShowWindow")
)

const (
	swHide        = 0
	swShowNA      = 8 // show without activating
	maxTitleChars = 256
)

type winManager struct{}

func newPlatformManager() Manager { return winManager{} }

// enumerate lists visible top-level windows with a non-empty title.
func enumerate() []WindowInfo {
	var out []WindowInfo

	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if vis, _, _ := procIsWindowVisible.Call(hwnd); vis == 0 {
			return 1 // continue
		}
		var buf [maxTitleChars]uint16
		n, _, _ := procGetWindowText.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), maxTitleChars)
		if n == 0 {
			return 1
		}
		out = append(out, WindowInfo{Handle: hwnd, Title: windows.UTF16ToString(buf[:n])})
		return 1
	})

	procEnumWindows.Call(cb, 0)
	return out
}

func (winManager) FindMain(markers []string) (MainWindow, bool) {
	info, ok := MatchMain(enumerate(), markers)
	if !ok {
		return nil, false
	}
	return &winMainWindow{hwnd: info.Handle}, true
}

type winMainWindow struct{ hwnd uintptr }

func (w *winMainWindow) Visible() bool {
	vis, _, _ := procIsWindowVisible.Call(w.hwnd)
	return vis != 0
}

func (w *winMainWindow) Hide() error {
	if ret, _, _ := procShowWindow.Call(w.hwnd, swHide); ret == 0 && w.Visible() {
		return fmt.Errorf("ShowWindow(SW_HIDE) had no effect")
	}
	return nil
}

func (w *winMainWindow) Restore() error {
	procShowWindow.Call(w.hwnd, swShowNA)
	return nil
}
