//go:build !windows

package main

import "micctl/common"

// Tray is only available on Windows.
type Tray struct{}

func NewTray(state *AppState, url string, onExit func()) *Tray {
	return &Tray{}
}

func (t *Tray) Start() error {
	return common.Errorf(common.KindSystem, "tray icon is only supported on Windows")
}

func (t *Tray) Stop() {}
