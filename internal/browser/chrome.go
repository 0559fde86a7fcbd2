package browser

import (
	"os/exec"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

// chromeCandidates are tried in order; bare names go through PATH.
var chromeCandidates = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChrome returns the first Chrome or Chromium binary found, or "" to let
// chromedp use its own lookup.
func FindChrome() string {
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, relying on chromedp defaults")
	return ""
}
