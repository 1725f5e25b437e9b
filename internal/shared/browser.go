package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// openCommand is swapped in tests so nothing is actually launched.
var openCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenInViewer opens a file path or URL with the platform's default application.
//
// Supports macOS, Linux, and Windows platforms.
func OpenInViewer(target string) error {
	var name string
	var args []string

	switch rt := getRuntime(); rt {
	case "darwin":
		name, args = "open", []string{target}
	case "linux":
		name, args = "xdg-open", []string{target}
	case "windows":
		name, args = "cmd", []string{"/c", "start", "", target}
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := openCommand(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}
