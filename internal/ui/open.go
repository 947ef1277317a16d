package ui

import (
	"os/exec"
	"runtime"
)

// OpenBrowser opens target (a URL or a local file path) with the OS default
// handler. It does not wait for the handler to exit.
func OpenBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}
