package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/sampletvinput/tvplay/constant"
	"github.com/sampletvinput/tvplay/icon"
	"github.com/sampletvinput/tvplay/style"
)

// checkEngine makes sure the engine executable can be found, printing
// install hints and exiting otherwise.
func checkEngine(path string) {
	if _, err := exec.LookPath(path); err != nil {
		fmt.Println(missingEngine(path, runtime.GOOS))
		os.Exit(1)
	}
}

func installHint(goos string) string {
	switch goos {
	case constant.Darwin:
		return "brew install mpv"
	case constant.Linux:
		return "sudo apt install mpv"
	case constant.Windows:
		return "scoop install mpv"
	default:
		return ""
	}
}

func missingEngine(path, goos string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.ErrorColor).
		Padding(1, 2).
		Margin(1, 0)

	title := style.ErrorTitle(fmt.Sprintf("%s Engine not found", icon.Get(icon.Fail)))
	body := fmt.Sprintf("%q was not found. Install mpv or set player.mpv_path.", path)

	var hint string
	if cmd := installHint(goos); cmd != "" {
		hint = "\nTry:\n  " + style.New().Foreground(style.AccentColor).Bold(true).Render(cmd)
	}

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, hint))
}
