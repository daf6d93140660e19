// Package autostart registers the daemon to start at login.
package autostart

import (
	"fmt"

	"github.com/emersion/go-autostart"
)

// entry is the part of *autostart.App used here.
type entry interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Manager toggles the login entry that runs "<exec> serve".
type Manager struct {
	app entry
}

// New creates a manager for the executable at exec.
func New(exec string) *Manager {
	return &Manager{app: &autostart.App{
		Name:        "galopend",
		DisplayName: "Galopen",
		Exec:        []string{exec, "serve"},
	}}
}

// Enabled reports whether the login entry exists.
func (m *Manager) Enabled() bool {
	return m.app.IsEnabled()
}

// Apply makes the login entry match enabled.
func (m *Manager) Apply(enabled bool) error {
	if m.app.IsEnabled() == enabled {
		return nil
	}
	if enabled {
		if err := m.app.Enable(); err != nil {
			return fmt.Errorf("enabling start at login: %w", err)
		}
		return nil
	}
	if err := m.app.Disable(); err != nil {
		return fmt.Errorf("disabling start at login: %w", err)
	}
	return nil
}
