//go:build windows

package overlay

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procCreateWindowEx           = user32.NewProc("CreateWindowExW")
	procDefWindowProc            = user32.NewProc("DefWindowProcW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procRegisterClassEx          = user32.NewProc("RegisterClassExW")
	procUpdateWindow             = user32.NewProc("UpdateWindow")
	procGetMessage               = user32.NewProc("GetMessageW")
	procPeekMessage              = user32.NewProc("PeekMessageW")
	procDispatchMessage          = user32.NewProc("DispatchMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procPostMessage              = user32.NewProc("PostMessageW")
	procPostThreadMessage        = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadId       = kernel32.NewProc("GetCurrentThreadId")
	procBeginPaint               = user32.NewProc("BeginPaint")
	procEndPaint                 = user32.NewProc("EndPaint")
	procDrawText                 = user32.NewProc("DrawTextW")
	procLoadCursor               = user32.NewProc("LoadCursorW")
	procSetLayeredWindowAttrs    = user32.NewProc("SetLayeredWindowAttributes")
	procSetWindowDisplayAffinity = user32.NewProc("SetWindowDisplayAffinity")
)

const (
	wsPopup          = 0x80000000
	wsVisible        = 0x10000000
	wsExNoActivate   = 0x08000000
	wsExToolWindow   = 0x00000080
	wsExTopmost      = 0x00000008
	wsExLayered      = 0x00080000
	wsExTransparent  = 0x00000020
	wmDestroy        = 0x0002
	wmPaint          = 0x000F
	wmClose          = 0x0010
	wmUser           = 0x0400
	wmExitLoop       = wmUser + 2
	swShowNoActivate = 4
	swpNoActivate    = 0x0010
	swpNoMove        = 0x0002
	swpNoSize        = 0x0001
	hwndTopmost      = ^uintptr(0) // HWND_TOPMOST (-1)
	smCYScreen       = 1
	dtNoPrefix       = 0x00000800
	dtWordBreak      = 0x00000010
	dtVCenter        = 0x00000004
	dtSingleLine     = 0x00000020
	colorWindow      = 5
	idcArrow         = 32512
	lwaAlpha         = 0x00000002
	// WDA_EXCLUDEFROMCAPTURE keeps the window out of screen recordings
	// and screenshots (Win10 2004+); older systems fall back to
	// WDA_MONITOR behavior via the same call.
	wdaExcludeFromCapture = 0x00000011

	overlayAlpha = 230
	className    = "McqAnswerOverlayClass"
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

type point struct{ X, Y int32 }

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rect struct{ Left, Top, Right, Bottom int32 }

type paintStruct struct {
	Hdc         windows.Handle
	FErase      int32
	RcPaint     rect
	FRestore    int32
	FIncUpdate  int32
	RgbReserved [32]byte
}

type createRequest struct {
	content string
	opts    SurfaceOptions
	reply   chan createReply
}

type createReply struct {
	hwnd windows.Handle
	err  error
}

// winBackend serializes all window work onto one locked OS thread, the
// same arrangement the rest of this codebase uses for Win32 UI.
type winBackend struct {
	requests chan createRequest
	once     sync.Once
}

var (
	// wndProc has no user data slot wired up, so the thread publishes
	// the text of the window it is currently running.
	activeText  string
	activeMutex sync.Mutex
)

func newPlatformBackend() Backend {
	return &winBackend{requests: make(chan createRequest, 4)}
}

type winSurface struct {
	hwnd windows.Handle
	once sync.Once
}

// Destroy may be called from any goroutine; actual teardown happens on
// the window thread via WM_CLOSE.
func (s *winSurface) Destroy() {
	s.once.Do(func() {
		procPostMessage.Call(uintptr(s.hwnd), wmClose, 0, 0)
	})
}

func (b *winBackend) Create(content string, opts SurfaceOptions) (Surface, error) {
	b.once.Do(b.startThread)

	req := createRequest{content: content, opts: opts, reply: make(chan createReply, 1)}
	select {
	case b.requests <- req:
	default:
		return nil, fmt.Errorf("overlay thread busy, dropping request")
	}

	rep := <-req.reply
	if rep.err != nil {
		return nil, rep.err
	}
	return &winSurface{hwnd: rep.hwnd}, nil
}

func (b *winBackend) startThread() {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Overlay thread panic: %v", r)
			}
		}()

		if err := registerWindowClass(); err != nil {
			log.Printf("Overlay: failed to register window class: %v", err)
			for req := range b.requests {
				req.reply <- createReply{err: err}
			}
			return
		}

		for req := range b.requests {
			b.runWindow(req)
		}
	}()
}

// runWindow creates the surface, replies with its handle, then pumps
// messages until the window dies. One window at a time on this thread.
func (b *winBackend) runWindow(req createRequest) {
	hwnd, err := createOverlayWindow(req.content, req.opts)
	req.reply <- createReply{hwnd: hwnd, err: err}
	if err != nil {
		return
	}

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 { // WM_QUIT
			break
		}
		if m.Message == wmExitLoop {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	// Drain leftovers so they cannot leak into the next window's loop.
	var flush msg
	for {
		ret, _, _ := procPeekMessage.Call(uintptr(unsafe.Pointer(&flush)), 0, 0, 0, 1 /* PM_REMOVE */)
		if ret == 0 {
			break
		}
	}
}

func wndProc(hwnd windows.Handle, message uint32, wParam, lParam uintptr) uintptr {
	switch message {
	case wmPaint:
		var ps paintStruct
		hdc, _, _ := procBeginPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))

		activeMutex.Lock()
		text := activeText
		activeMutex.Unlock()

		r := rect{Left: 8, Top: 0, Right: ps.RcPaint.Right - 8, Bottom: ps.RcPaint.Bottom}
		textPtr, _ := syscall.UTF16PtrFromString(text)
		procDrawText.Call(
			hdc,
			uintptr(unsafe.Pointer(textPtr)),
			uintptr(^uint32(0)), // -1: NUL-terminated
			uintptr(unsafe.Pointer(&r)),
			dtNoPrefix|dtSingleLine|dtVCenter,
		)

		procEndPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))
		return 0

	case wmClose:
		procDestroyWindow.Call(uintptr(hwnd))
		return 0

	case wmDestroy:
		threadID, _, _ := procGetCurrentThreadId.Call()
		procPostThreadMessage.Call(threadID, wmExitLoop, 0, 0)
		return 0
	}

	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(message), wParam, lParam)
	return ret
}

func registerWindowClass() error {
	clsName, _ := syscall.UTF16PtrFromString(className)
	cursor, _, _ := procLoadCursor.Call(0, idcArrow)

	wc := wndClassEx{
		CbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
		LpfnWndProc:   syscall.NewCallback(wndProc),
		HCursor:       windows.Handle(cursor),
		HbrBackground: windows.Handle(colorWindow + 1),
		LpszClassName: clsName,
	}

	atom, _, lastErr := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc)))
	if atom == 0 {
		return fmt.Errorf("RegisterClassEx failed: %v", lastErr)
	}
	return nil
}

func createOverlayWindow(content string, opts SurfaceOptions) (windows.Handle, error) {
	activeMutex.Lock()
	activeText = content
	activeMutex.Unlock()

	clsName, _ := syscall.UTF16PtrFromString(className)
	windowName, _ := syscall.UTF16PtrFromString("Answer")

	x, y := opts.X, opts.Y
	if opts.AnchorBottomLeft {
		screenHeight, _, _ := procGetSystemMetrics.Call(smCYScreen)
		x = opts.Margin
		y = int(screenHeight) - opts.Height - opts.Margin
	}

	// No-activate layered toolwindow: never takes focus, clicks pass
	// through, survives full-screen apps via topmost.
	hwnd, _, _ := procCreateWindowEx.Call(
		wsExNoActivate|wsExToolWindow|wsExTopmost|wsExLayered|wsExTransparent,
		uintptr(unsafe.Pointer(clsName)),
		uintptr(unsafe.Pointer(windowName)),
		wsPopup|wsVisible,
		uintptr(x), uintptr(y),
		uintptr(opts.Width), uintptr(opts.Height),
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowEx failed")
	}

	procSetLayeredWindowAttrs.Call(hwnd, 0, overlayAlpha, lwaAlpha)

	// Best effort: unsupported before Win10 2004, and the overlay still
	// works without it.
	if ret, _, _ := procSetWindowDisplayAffinity.Call(hwnd, wdaExcludeFromCapture); ret == 0 {
		log.Printf("Overlay: SetWindowDisplayAffinity not applied")
	}

	procSetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0, swpNoActivate|swpNoMove|swpNoSize)
	procShowWindow.Call(hwnd, swShowNoActivate)
	procUpdateWindow.Call(hwnd)

	log.Printf("Overlay: window created at (%d,%d) size %dx%d", x, y, opts.Width, opts.Height)
	return windows.Handle(hwnd), nil
}
