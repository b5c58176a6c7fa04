// Package tui provides the playback control screen.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sampletvinput/tvplay/player"
)

// Controller is the part of the player the screen drives.
type Controller interface {
	URI() string
	Prepare(ctx context.Context) error
	Play() error
	Pause() error
	PlayWhenReady() bool
	PlaybackState() player.PlaybackState
	SeekTo(position time.Duration) error
	CurrentPosition() time.Duration
	Duration() time.Duration
	BufferedPercentage() int
	SetVolume(volume float32) error
	SetPlaybackParams(params player.PlaybackParameters) error
	PlaybackSpeed() float32

	AddListener(l player.Listener)
	RemoveListener(l player.Listener)
	AddCaptionListener(l player.CaptionListener)
	RemoveCaptionListener(l player.CaptionListener)
	AddMetadataListener(l player.MetadataListener)
	RemoveMetadataListener(l player.MetadataListener)
	RegisterCallback(c player.Callback)
	UnregisterCallback(c player.Callback)
}

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Player Controller
	// Volume is applied once the player is prepared, in [0, 1].
	Volume float32
	// PlayWhenReady starts playback as soon as the player is prepared.
	PlayWhenReady bool
}

// Run prepares the player and shows the control screen until the user quits.
func Run(ctx context.Context, options *Options) error {
	bubble := newBubble(ctx, options)
	defer bubble.detach()

	_, err := tea.NewProgram(bubble, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
