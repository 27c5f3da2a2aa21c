// Package overlay owns the single on-screen answer surface: an
// always-on-top, non-activating, capture-excluded window that shows
// the resolved answer and dismisses itself after a timeout.
package overlay

import (
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Surface is one live overlay window. Destroy is idempotent.
type Surface interface {
	Destroy()
}

// Backend creates platform surfaces. The Windows implementation runs a
// dedicated message-loop thread; other platforms get a logging stub.
type Backend interface {
	Create(content string, opts SurfaceOptions) (Surface, error)
}

type SurfaceOptions struct {
	X, Y             int // ignored when AnchorBottomLeft is set
	Width, Height    int
	Margin           int
	AnchorBottomLeft bool
}

const (
	minSurfaceWidth = 80
	maxSurfaceWidth = 420
	surfaceHeight   = 44
	surfaceMargin   = 20
	pxPerChar       = 10
)

// Presenter is the exclusive owner of the overlay surface singleton.
// Its state machine is Absent -> Displayed -> Absent; Show forces any
// existing surface through Absent first.
type Presenter struct {
	mu      sync.Mutex
	backend Backend
	dismiss time.Duration
	gen     uint64
	current Surface
	timer   *time.Timer
}

// New returns a presenter on the platform backend.
func New(dismiss time.Duration) *Presenter {
	return NewWithBackend(newPlatformBackend(), dismiss)
}

// NewWithBackend lets tests substitute a fake backend.
func NewWithBackend(backend Backend, dismiss time.Duration) *Presenter {
	if dismiss <= 0 {
		dismiss = 6 * time.Second
	}
	return &Presenter{backend: backend, dismiss: dismiss}
}

// Show replaces any existing surface with a new one displaying content
// and arms the auto-dismiss timer. At most one surface is ever alive.
func (p *Presenter) Show(content string) error {
	content = sanitizeContent(content)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.destroyCurrentLocked()

	surface, err := p.backend.Create(content, SurfaceOptions{
		Width:            surfaceWidth(content),
		Height:           surfaceHeight,
		Margin:           surfaceMargin,
		AnchorBottomLeft: true,
	})
	if err != nil {
		return err
	}

	p.gen++
	gen := p.gen
	p.current = surface
	p.timer = time.AfterFunc(p.dismiss, func() { p.hideIfCurrent(gen) })

	log.Printf("Overlay: displayed %d chars, auto-dismiss in %s", len(content), p.dismiss)
	return nil
}

// Hide destroys the surface if one exists. Safe to call at any time,
// any number of times, including concurrently with the dismiss timer.
func (p *Presenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyCurrentLocked()
}

// Cleanup releases the surface at application shutdown.
func (p *Presenter) Cleanup() { p.Hide() }

// hideIfCurrent is the timer path. The generation check makes a stale
// timer firing after a forced replacement a no-op instead of tearing
// down the newer surface.
func (p *Presenter) hideIfCurrent(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	p.destroyCurrentLocked()
}

func (p *Presenter) destroyCurrentLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.current != nil {
		p.current.Destroy()
		p.current = nil
	}
}

// surfaceWidth scales with content length between a floor and a cap.
// Counted in runes, not bytes, so multibyte text sizes like ASCII.
func surfaceWidth(content string) int {
	w := utf8.RuneCountInString(content) * pxPerChar
	if w < minSurfaceWidth {
		return minSurfaceWidth
	}
	if w > maxSurfaceWidth {
		return maxSurfaceWidth
	}
	return w
}

// sanitizeContent strips characters with special meaning to the text
// renderer (control characters; '&' doubling neutralizes the Win32
// accelerator prefix) so arbitrary model output renders literally.
func sanitizeContent(content string) string {
	content = strings.ReplaceAll(content, "&", "&&")
	var b strings.Builder
	for _, r := range content {
		if r < 32 || r == 127 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
