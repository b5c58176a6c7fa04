package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/sampletvinput/tvplay/player"
	"github.com/sampletvinput/tvplay/style"
	"github.com/sampletvinput/tvplay/util"
)

const (
	seekStep    = 10 * time.Second
	volumeStep  = 0.05
	speedStep   = 0.25
	tickEvery   = 500 * time.Millisecond
	eventBuffer = 256
)

// bubble is the playback control screen model.
type bubble struct {
	ctx     context.Context
	options *Options
	player  Controller
	events  *bridge

	state  state
	keymap *keymap

	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model

	playWhenReady bool
	playback      player.PlaybackState
	position      time.Duration
	duration      time.Duration
	buffered      int
	volume        float32
	speed         float32
	videoSize     player.VideoSize
	caption       string
	title         string
	status        string
	lastError     error

	width, height int
}

func newBubble(ctx context.Context, options *Options) *bubble {
	b := &bubble{
		ctx:      ctx,
		options:  options,
		player:   options.Player,
		events:   newBridge(eventBuffer),
		keymap:   newKeymap(),
		volume:   util.Clamp(options.Volume, 0, 1),
		speed:    player.DefaultPlaybackSpeed,
		duration: -1,
	}

	b.spinnerC = spinner.New()
	b.spinnerC.Spinner = spinner.Dot
	b.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)

	b.progressC = progress.New(progress.WithSolidFill(string(style.AccentColor)), progress.WithoutPercentage())
	b.helpC = help.New()

	b.player.AddListener(b.events)
	b.player.AddCaptionListener(b.events)
	b.player.AddMetadataListener(b.events)
	b.player.RegisterCallback(b.events)

	if w, h, err := util.TerminalSize(); err == nil {
		b.resize(w, h)
	}

	b.setState(loadingState)
	return b
}

// detach stops listening to the player.
func (b *bubble) detach() {
	b.player.RemoveListener(b.events)
	b.player.RemoveCaptionListener(b.events)
	b.player.RemoveMetadataListener(b.events)
	b.player.UnregisterCallback(b.events)
}

func (b *bubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *bubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

func (b *bubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	b.width = width - x
	b.height = height - y
	b.progressC.Width = b.width
	b.helpC.Width = b.width
}
