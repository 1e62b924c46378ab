//go:build windows

package main

import (
	"errors"
	"os"

	"golang.org/x/sys/windows/registry"

	"micctl/common"
)

const (
	runKeyPath   = `Software\Microsoft\Windows\CurrentVersion\Run`
	runValueName = "micctl"
)

// registerLaunch adds or removes the per-user Run entry that starts
// "micctl run" at logon.
func registerLaunch(cfgPath string, enabled bool) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return common.Wrap(common.KindSystem, err, "failed to open the Run key")
	}
	defer k.Close()

	if !enabled {
		if err := k.DeleteValue(runValueName); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return common.Wrap(common.KindSystem, err, "failed to disable launch on startup")
		}
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return common.Wrap(common.KindSystem, err, "failed to locate the executable")
	}
	if err := k.SetStringValue(runValueName, launchCommand(exe, cfgPath)); err != nil {
		return common.Wrap(common.KindSystem, err, "failed to enable launch on startup")
	}
	return nil
}
