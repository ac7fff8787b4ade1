// Package tray puts pointer control and the live gesture into the system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/airmouse/internal/app"
)

// Controller is the part of the app the tray drives.
type Controller interface {
	SetPerform(perform bool)
	Perform() bool
	Subscribe() (<-chan app.HandData, func())
}

// Tray represents the system tray menu.
type Tray struct {
	ctrl      Controller
	onOpen    func()
	onQuit    func()
	mu        sync.Mutex
	lastLabel string

	menuToggle  *systray.MenuItem
	menuGesture *systray.MenuItem
}

// New creates a tray bound to ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{ctrl: ctrl, lastLabel: "none"}
}

// OnOpen sets the callback for the "Open dashboard" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It must be called from the main goroutine and blocks
// until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("airmouse")
	systray.SetTooltip("Hand gesture pointer control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.ctrl.Perform()), "Toggle pointer control")
	systray.AddSeparator()
	t.menuGesture = systray.AddMenuItem(gestureTitle(t.lastLabel), "Current gesture")
	t.menuGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open dashboard", "Open the web UI")
	menuQuit := systray.AddMenuItem("Quit", "Quit airmouse")

	updates, cancel := t.ctrl.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.Toggle()
			case <-menuOpen.ClickedCh:
				t.mu.Lock()
				fn := t.onOpen
				t.mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-menuQuit.ClickedCh:
				t.mu.Lock()
				fn := t.onQuit
				t.mu.Unlock()
				if fn != nil {
					fn()
				}
				systray.Quit()
				return
			case h := <-updates:
				t.SetGesture(h.Gesture)
			}
		}
	}()
}

// Toggle flips pointer control and returns the new state.
func (t *Tray) Toggle() bool {
	perform := !t.ctrl.Perform()
	t.ctrl.SetPerform(perform)

	t.mu.Lock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(perform))
	}
	t.mu.Unlock()
	return perform
}

// SetGesture updates the gesture item; repeated labels are not redrawn.
func (t *Tray) SetGesture(label string) {
	if label == "" {
		label = "none"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if label == t.lastLabel {
		return
	}
	t.lastLabel = label
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(gestureTitle(label))
	}
}

// Gesture returns the label last shown.
func (t *Tray) Gesture() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastLabel
}

func toggleTitle(perform bool) string {
	if perform {
		return "● Pointer control on"
	}
	return "○ Pointer control off"
}

func gestureTitle(label string) string {
	return "Gesture: " + label
}
