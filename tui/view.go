package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/icon"
	"github.com/sampletvinput/tvplay/player"
	"github.com/sampletvinput/tvplay/style"
	"github.com/sampletvinput/tvplay/util"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *bubble) View() string {
	switch b.state {
	case loadingState:
		return b.viewLoading()
	case playingState:
		return b.viewPlaying()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *bubble) viewLoading() string {
	return b.renderLines([]string{
		style.Title("Preparing"),
		"",
		b.spinnerC.View() + " " + b.fit(b.player.URI()),
	})
}

func (b *bubble) viewPlaying() string {
	title := b.title
	if title == "" {
		title = b.player.URI()
	}

	var ratio float64
	if b.duration > 0 {
		ratio = float64(b.position) / float64(b.duration)
	}

	lines := []string{
		style.Title("Now Playing"),
		"",
		b.fit(stateIcon(b.playback, b.playWhenReady) + " " + style.Fg(color.Purple)(title)),
		"",
		b.progressC.ViewAs(util.Clamp(ratio, 0, 1)),
		fmt.Sprintf("%s / %s  %s",
			util.FormatPosition(b.position),
			util.FormatPosition(b.duration),
			style.Faint(fmt.Sprintf("buffered %d%%", b.buffered)),
		),
		"",
		b.fit(b.details()),
	}

	if b.caption != "" {
		lines = append(lines, "", b.fit(style.Italic(b.caption)))
	}
	if b.status != "" {
		lines = append(lines, "", style.Faint(b.status))
	}

	return b.renderLines(lines)
}

func (b *bubble) details() string {
	parts := []string{
		style.Fg(color.Cyan)(b.playback.String()),
		fmt.Sprintf("volume %d%%", int(b.volume*100+0.5)),
		fmt.Sprintf("speed %.2gx", b.speed),
	}
	if b.videoSize.Width > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", b.videoSize.Width, b.videoSize.Height))
	}
	return strings.Join(parts, style.Faint(" · "))
}

func (b *bubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(style.ErrorColor).Bold(true)

	var body string
	if b.lastError != nil {
		body = errorStyle.Render(b.lastError.Error())
	}

	return b.renderLines([]string{
		style.ErrorTitle("Error"),
		"",
		icon.Get(icon.Fail) + " Playback failed:",
		"",
		b.wrap(body),
	})
}

func (b *bubble) wrap(s string) string {
	if b.width <= 0 {
		return s
	}
	return wrap.String(s, b.width)
}

// fit truncates s to the screen width.
func (b *bubble) fit(s string) string {
	if b.width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(b.width), "…")
}

func (b *bubble) renderLines(lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if b.height > h {
		l += strings.Repeat("\n", b.height-h)
	}
	l += b.helpC.View(b.keymap)

	return paddingStyle.Render(l)
}

func stateIcon(state player.PlaybackState, playWhenReady bool) string {
	switch state {
	case player.StatePreparing:
		return icon.Get(icon.Preparing)
	case player.StateBuffering:
		return icon.Get(icon.Buffering)
	case player.StateEnded:
		return icon.Get(icon.Ended)
	case player.StateIdle:
		return icon.Get(icon.Idle)
	}
	if playWhenReady {
		return icon.Get(icon.Playing)
	}
	return icon.Get(icon.Paused)
}
