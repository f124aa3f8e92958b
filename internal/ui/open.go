package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// openerCommand builds the command that opens target in the user's
// browser. custom is the open_command preference; the target is appended
// as its last argument.
func openerCommand(custom, target string) *exec.Cmd {
	if fields := strings.Fields(custom); len(fields) > 0 {
		return exec.Command(fields[0], append(fields[1:], target)...)
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	}
	return exec.Command("xdg-open", target)
}

func openURLCmd(custom, target string) tea.Cmd {
	return func() tea.Msg {
		cmd := openerCommand(custom, target)
		if err := cmd.Start(); err != nil {
			return errMsg{view: noView, op: "Open", err: fmt.Errorf("start %s: %w", cmd.Path, err)}
		}
		// Reap the launcher so it does not linger as a zombie.
		go func() { _ = cmd.Wait() }()
		return infoMsg("Opened " + target)
	}
}
