// Package tray puts a status icon with a small menu in the desktop tray.
package tray

import (
	"os/exec"
	"runtime"
	"sync"

	"fyne.io/systray"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Tray manages the system tray icon and menu
type Tray struct {
	url          string
	shutdownFunc ShutdownFunc
	once         sync.Once
	shuttingDown atomic.Bool
	menuOpen     *systray.MenuItem
	menuExit     *systray.MenuItem
	logger       *zap.SugaredLogger
}

// New creates a tray whose "Open settings" item opens url.
func New(url string, shutdownFn ShutdownFunc, logger *zap.SugaredLogger) *Tray {
	return &Tray{
		url:          url,
		shutdownFunc: shutdownFn,
		logger:       logger,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, t.onExit)
}

// Quit removes the icon. Run returns afterwards.
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("camstick")
	systray.SetTooltip("camstick - " + t.url)

	t.menuOpen = systray.AddMenuItem("Open settings", "Open the settings page")
	t.menuExit = systray.AddMenuItem("Exit", "Stop remapping and quit")

	go t.handleMenuClicks()

	t.logger.Debug("system tray initialized")
}

func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.logger.Debug("system tray exiting")
}

func (t *Tray) openBrowser() {
	name, args := openCommand(runtime.GOOS, t.url)
	if err := exec.Command(name, args...).Start(); err != nil {
		t.logger.Warnw("failed to open browser", "url", t.url, "error", err)
	}
}

// openCommand returns the command that opens url in the desktop's default browser.
func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}
