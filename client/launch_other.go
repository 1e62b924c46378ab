//go:build !windows

package main

import "micctl/common"

func registerLaunch(cfgPath string, enabled bool) error {
	if !enabled {
		return nil
	}
	return common.Errorf(common.KindSystem, "launch on startup is only supported on Windows")
}
