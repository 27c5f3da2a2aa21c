//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

// enableDPIAwareness opts the process into per-monitor DPI awareness so
// overlay placement and sizing use physical pixels on scaled displays.
// Shcore is preferred; older systems fall back to the user32 call.
func enableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if setProcessDpiAwareness.Find() == nil {
		const processPerMonitorDpiAware = 2
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDpiAware))
		if ret == 0 {
			return
		}
		log.Printf("SetProcessDpiAwareness returned 0x%x, falling back", ret)
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if setProcessDPIAware.Find() == nil {
		setProcessDPIAware.Call()
	}
}
