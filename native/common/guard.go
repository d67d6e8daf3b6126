// Package common carries the pause switch shared by the marketplace
// modules. A PauseView names paused modules by the same identifier used to
// derive their vault address, and Guard runs at the top of every
// state-mutating entry point before any escrow moves.
package common

import "errors"

// ErrModulePaused is returned by Guard when the named module is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is administratively paused. The node
// configuration implements it; a nil view pauses nothing.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. Read-side queries skip
// it so a paused marketplace stays inspectable.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
