package main

import (
	"os/exec"
	"runtime"

	"micctl/common"
	"micctl/common/logger"
)

// browserCommands lists launch attempts in order of preference. On Windows
// an app-mode window is tried before the default browser.
func browserCommands(url string) [][]string {
	switch runtime.GOOS {
	case "windows":
		return [][]string{
			{"msedge", "--app=" + url},
			{"chrome", "--app=" + url},
			{"rundll32", "url.dll,FileProtocolHandler", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{{"xdg-open", url}}
	}
}

// openBrowser shows url in a browser window.
func openBrowser(url string) error {
	var lastErr error
	for _, c := range browserCommands(url) {
		if err := exec.Command(c[0], c[1:]...).Start(); err != nil {
			logger.Debug("Browser %s failed: %v", c[0], err)
			lastErr = err
			continue
		}
		logger.Info("Opened %s with %s", url, c[0])
		return nil
	}
	return common.Wrap(common.KindSystem, lastErr, "no browser could be started")
}
