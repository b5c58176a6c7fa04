package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/sampletvinput/tvplay/color"
	"github.com/sampletvinput/tvplay/style"
)

type keymap struct {
	state state

	quit, forceQuit,
	playPause,
	seekForward, seekBackward,
	volumeUp, volumeDown,
	faster, slower,
	retry,
	showHelp key.Binding
}

func (k *keymap) setState(newState state) {
	k.state = newState
}

func newKeymap() *keymap {
	return &keymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "space", "p"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		seekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "+10s"),
		),
		seekBackward: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "-10s"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("up", "k", "+"),
			key.WithHelp("↑", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("down", "j", "-"),
			key.WithHelp("↓", "volume down"),
		),
		faster: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "faster"),
		),
		slower: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "slower"),
		),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "prepare again"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *keymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case loadingState:
		return h(k.forceQuit), h(k.forceQuit)
	case playingState:
		return h(k.playPause, k.seekForward, k.seekBackward, k.showHelp, k.quit),
			h(k.playPause, k.seekForward, k.seekBackward, k.volumeUp, k.volumeDown, k.faster, k.slower, k.retry, k.quit)
	case errorState:
		return h(k.retry, k.quit), h(k.retry, k.quit)
	default:
		return h(), h()
	}
}

func (k *keymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *keymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
