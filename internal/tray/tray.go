// Package tray keeps the status indicator label.
package tray

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	ClassCountdown = "countdown"
	ClassIdle      = "idle"
)

// State is the indicator as rendered by a status bar (waybar custom module shape).
type State struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// Indicator holds the latest countdown label. It is safe for concurrent use.
type Indicator struct {
	mu    sync.Mutex
	state State
	log   *logrus.Entry
}

// NewIndicator returns a cleared indicator.
func NewIndicator() *Indicator {
	return &Indicator{
		state: State{Class: ClassIdle},
		log:   logrus.WithField("component", "tray"),
	}
}

// SetTitle shows text with a tooltip naming the next event. shown=false clears it.
func (i *Indicator) SetTitle(text, tooltip string, shown bool) {
	next := State{Class: ClassIdle}
	if shown {
		next = State{Text: text, Tooltip: tooltip, Class: ClassCountdown}
	}

	i.mu.Lock()
	changed := next != i.state
	i.state = next
	i.mu.Unlock()

	if changed {
		i.log.WithFields(logrus.Fields{"text": next.Text, "class": next.Class}).Debug("tray label changed")
	}
}

// State returns the current indicator state.
func (i *Indicator) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}
