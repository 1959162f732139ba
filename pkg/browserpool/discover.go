package browserpool

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// chromeEnvVar overrides discovery entirely when set to an existing path.
const chromeEnvVar = "A3S_CHROME"

var knownCommands = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

func knownPaths() []string {
	if runtime.GOOS == "darwin" {
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	}
	return []string{
		"/opt/google/chrome/chrome",
		"/opt/chromium.org/chromium/chrome",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	}
}

// Discover locates a Chrome/Chromium binary: the A3S_CHROME environment
// variable, then PATH, then well-known install locations, then the
// ~/.a3s/chromium download cache. Returns ErrUnavailable when nothing is
// found; downloading a browser is the host's concern.
func Discover() (string, error) {
	if path := os.Getenv(chromeEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, cmd := range knownCommands {
		if path, err := exec.LookPath(cmd); err == nil {
			return path, nil
		}
	}

	for _, path := range knownPaths() {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		pattern := filepath.Join(home, ".a3s", "chromium", "*", "chrome-*", "chrome")
		if matches, err := filepath.Glob(pattern); err == nil && len(matches) > 0 {
			return matches[0], nil
		}
	}

	return "", ErrUnavailable
}
