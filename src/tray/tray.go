// Package tray hosts the resident tray icon: a Capture entry, an exit
// entry, and a tooltip that doubles as a busy indicator.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

type Config struct {
	Title     string
	Tooltip   string
	OnCapture func()
	OnExit    func()
}

type Icon struct {
	cfg Config
}

var (
	tooltipMu sync.Mutex
	ready     bool
)

func New(cfg Config) (*Icon, error) {
	return &Icon{cfg: cfg}, nil
}

// Run blocks inside systray's event loop; call from a dedicated
// goroutine.
func (i *Icon) Run() {
	systray.Run(i.onReady, i.onExit)
}

func (i *Icon) Destroy() {
	systray.Quit()
}

func (i *Icon) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle(i.cfg.Title)
	systray.SetTooltip(i.cfg.Tooltip)

	tooltipMu.Lock()
	ready = true
	tooltipMu.Unlock()

	mCapture := systray.AddMenuItem("Answer on-screen question", "Capture the screen and answer the visible question")
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mCapture.ClickedCh:
				if i.cfg.OnCapture != nil {
					i.cfg.OnCapture()
				}
			case <-mQuit.ClickedCh:
				if i.cfg.OnExit != nil {
					i.cfg.OnExit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (i *Icon) onExit() {}

// UpdateTooltip is a no-op until the tray is ready; systray panics on
// early calls.
func UpdateTooltip(tt string) {
	tooltipMu.Lock()
	ok := ready
	tooltipMu.Unlock()
	if ok {
		systray.SetTooltip(tt)
	}
}
