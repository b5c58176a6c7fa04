package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/player"
)

type (
	stateMsg struct {
		playWhenReady bool
		state         player.PlaybackState
	}
	errorMsg     struct{ err error }
	videoSizeMsg player.VideoSize
	cuesMsg      []player.Cue
	metadataMsg  []player.MetadataFrame
	callbackMsg  string
	preparedMsg  struct{ err error }
	tickMsg      struct{}
)

// bridge turns player notifications into bubbletea messages. Notifications
// may arrive on the engine goroutine or inside Update, so they are buffered
// and never block the caller.
type bridge struct {
	msgs chan tea.Msg
}

func newBridge(size int) *bridge {
	return &bridge{msgs: make(chan tea.Msg, size)}
}

func (br *bridge) push(msg tea.Msg) {
	select {
	case br.msgs <- msg:
	default:
		log.Warnf("tui event queue full, dropping %T", msg)
	}
}

// wait returns a command delivering the next player notification.
func (br *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-br.msgs
	}
}

func (br *bridge) OnStateChanged(playWhenReady bool, state player.PlaybackState) {
	br.push(stateMsg{playWhenReady: playWhenReady, state: state})
}

func (br *bridge) OnError(err error) {
	br.push(errorMsg{err: err})
}

func (br *bridge) OnVideoSizeChanged(width, height, rotation int, ratio float32) {
	br.push(videoSizeMsg{Width: width, Height: height, UnappliedRotationDegrees: rotation, PixelWidthHeightRatio: ratio})
}

func (br *bridge) OnCues(cues []player.Cue) {
	br.push(cuesMsg(cues))
}

func (br *bridge) OnMetadata(frames []player.MetadataFrame) {
	br.push(metadataMsg(frames))
}

func (br *bridge) OnStarted() {
	br.push(callbackMsg("started"))
}

func (br *bridge) OnPaused() {
	br.push(callbackMsg("paused"))
}

func (br *bridge) OnCompleted() {
	br.push(callbackMsg("completed"))
}
