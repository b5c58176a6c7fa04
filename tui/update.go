package tui

import (
	"time"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/player"
	"github.com/sampletvinput/tvplay/util"
)

// Init prepares the player and starts listening for its notifications.
func (b *bubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.prepare(), b.events.wait(), tick())
}

func (b *bubble) prepare() tea.Cmd {
	return func() tea.Msg {
		log.Infof("preparing %s", b.player.URI())
		return preparedMsg{err: b.player.Prepare(b.ctx)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (b *bubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil
	case tea.KeyMsg:
		return b, b.handleKey(msg)
	case preparedMsg:
		return b, b.handlePrepared(msg.err)
	case stateMsg:
		b.playWhenReady, b.playback = msg.playWhenReady, msg.state
		if b.state == loadingState && msg.state != player.StatePreparing && msg.state != player.StateIdle {
			b.setState(playingState)
		}
		return b, b.events.wait()
	case errorMsg:
		b.raiseError(msg.err)
		return b, b.events.wait()
	case videoSizeMsg:
		b.videoSize = player.VideoSize(msg)
		return b, b.events.wait()
	case cuesMsg:
		b.caption = ""
		if len(msg) > 0 {
			b.caption = msg[len(msg)-1].Text
		}
		return b, b.events.wait()
	case metadataMsg:
		if frame, ok := lo.Find(msg, func(f player.MetadataFrame) bool { return f.Key == "title" || f.Key == "icy-title" }); ok {
			b.title = frame.Value
		}
		return b, b.events.wait()
	case callbackMsg:
		b.status = string(msg)
		return b, b.events.wait()
	case tickMsg:
		b.poll()
		return b, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case progress.FrameMsg:
		model, cmd := b.progressC.Update(msg)
		b.progressC = model.(progress.Model)
		return b, cmd
	}
	return b, nil
}

func (b *bubble) handlePrepared(err error) tea.Cmd {
	if err != nil {
		b.raiseError(err)
		return nil
	}

	if err := b.player.SetVolume(b.volume); err != nil {
		log.Warn(err)
	}
	if b.options.PlayWhenReady {
		if err := b.player.Play(); err != nil {
			b.raiseError(err)
		}
	}
	return nil
}

// poll refreshes the values the player does not push.
func (b *bubble) poll() {
	b.position = b.player.CurrentPosition()
	b.duration = b.player.Duration()
	b.buffered = b.player.BufferedPercentage()
	b.speed = b.player.PlaybackSpeed()
}

func (b *bubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case bubblesKey.Matches(msg, b.keymap.forceQuit):
		return tea.Quit
	case bubblesKey.Matches(msg, b.keymap.quit):
		return tea.Quit
	case bubblesKey.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
		return nil
	case bubblesKey.Matches(msg, b.keymap.retry):
		if b.state == loadingState {
			return nil
		}
		b.lastError = nil
		b.setState(loadingState)
		return b.prepare()
	}

	if b.state != playingState {
		return nil
	}

	var err error
	switch {
	case bubblesKey.Matches(msg, b.keymap.playPause):
		if b.player.PlayWhenReady() {
			err = b.player.Pause()
		} else {
			err = b.player.Play()
		}
	case bubblesKey.Matches(msg, b.keymap.seekForward):
		err = b.seek(seekStep)
	case bubblesKey.Matches(msg, b.keymap.seekBackward):
		err = b.seek(-seekStep)
	case bubblesKey.Matches(msg, b.keymap.volumeUp):
		err = b.setVolume(b.volume + volumeStep)
	case bubblesKey.Matches(msg, b.keymap.volumeDown):
		err = b.setVolume(b.volume - volumeStep)
	case bubblesKey.Matches(msg, b.keymap.faster):
		err = b.setSpeed(b.player.PlaybackSpeed() + speedStep)
	case bubblesKey.Matches(msg, b.keymap.slower):
		err = b.setSpeed(b.player.PlaybackSpeed() - speedStep)
	}

	if err != nil {
		b.raiseError(err)
	}
	return nil
}

func (b *bubble) seek(delta time.Duration) error {
	target := b.player.CurrentPosition() + delta
	if target < 0 {
		target = 0
	}
	if duration := b.player.Duration(); duration >= 0 && target > duration {
		target = duration
	}
	b.position = target
	return b.player.SeekTo(target)
}

func (b *bubble) setVolume(volume float32) error {
	b.volume = util.Clamp(volume, 0, 1)
	return b.player.SetVolume(b.volume)
}

func (b *bubble) setSpeed(speed float32) error {
	b.speed = util.Clamp(speed, speedStep, 4)
	return b.player.SetPlaybackParams(player.PlaybackParameters{Speed: b.speed, Pitch: 1})
}
