package player

import (
	"context"
	"time"

	"github.com/sampletvinput/tvplay/media"
)

// Engine is the wrapped media engine. It owns decoding, buffering and
// rendering; DemoPlayer only forwards calls and consumes its events.
type Engine interface {
	// Prepare loads src. resetPosition and resetState discard the position
	// and the track state kept from a previous source.
	Prepare(ctx context.Context, src media.Source, resetPosition, resetState bool) error

	// Renderers returns the renderer slots accepted for the prepared source.
	Renderers() Renderers

	SetPlayWhenReady(playWhenReady bool) error
	PlayWhenReady() bool

	// PlaybackState is the engine's native state; it never reports StatePreparing.
	PlaybackState() PlaybackState

	SeekTo(position time.Duration) error
	CurrentPosition() time.Duration
	// Duration is negative when unknown.
	Duration() time.Duration
	BufferedPercentage() int

	SetPlaybackParameters(params PlaybackParameters) error

	Stop() error
	Release() error

	// SendMessage queues msg for its target renderer and returns immediately.
	SendMessage(msg Message) error
	// BlockingSendMessage returns once the target renderer has applied msg.
	BlockingSendMessage(ctx context.Context, msg Message) error

	// Subscribe registers h for every engine event until the returned func is called.
	Subscribe(h EventHandler) (unsubscribe func())
}

// MessageKind selects what a Message does to its target renderer.
type MessageKind int

const (
	// MsgSetSurface carries a mo.Option[Surface]; None detaches the current surface.
	MsgSetSurface MessageKind = iota + 1
	// MsgSetVolume carries a float32 in [0, 1].
	MsgSetVolume
)

func (k MessageKind) String() string {
	switch k {
	case MsgSetSurface:
		return "set-surface"
	case MsgSetVolume:
		return "set-volume"
	default:
		return "unknown"
	}
}

// Message is addressed to one renderer of the engine.
type Message struct {
	Target  Renderer
	Kind    MessageKind
	Payload any
}

// Format describes one track of the prepared media.
type Format struct {
	ID        string
	MimeType  string
	Codecs    string
	Language  string
	Bitrate   int
	Width     int
	Height    int
	FrameRate float32
}

// TrackGroup lists the formats offered to one renderer.
type TrackGroup struct {
	Renderer  TrackType
	Formats   []Format
	Selected  int // index into Formats, -1 when nothing is selected
	Supported bool
}

// SelectedFormat returns the selected format of the group, if any.
func (g TrackGroup) SelectedFormat() (Format, bool) {
	if g.Selected < 0 || g.Selected >= len(g.Formats) {
		return Format{}, false
	}
	return g.Formats[g.Selected], true
}

// Timeline describes the loaded media as a whole.
type Timeline struct {
	Duration time.Duration
	Seekable bool
	Live     bool
}

// VideoSize is the decoded picture geometry.
type VideoSize struct {
	Width                    int
	Height                   int
	UnappliedRotationDegrees int
	PixelWidthHeightRatio    float32
}

// Cue is one timed text entry.
type Cue struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// MetadataFrame is one metadata entry parsed from the stream (ID3 frames, container tags).
type MetadataFrame struct {
	Key   string
	Value string
}

// EventKind tags an engine Event.
type EventKind int

const (
	EventTimelineChanged EventKind = iota + 1
	EventTracksChanged
	EventLoadingChanged
	EventPlayerStateChanged
	EventPlayerError
	EventPositionDiscontinuity
	EventPlaybackParametersChanged
	EventVideoSizeChanged
	EventCues
	EventMetadata
	EventLoadError
)

func (k EventKind) String() string {
	switch k {
	case EventTimelineChanged:
		return "timeline-changed"
	case EventTracksChanged:
		return "tracks-changed"
	case EventLoadingChanged:
		return "loading-changed"
	case EventPlayerStateChanged:
		return "player-state-changed"
	case EventPlayerError:
		return "player-error"
	case EventPositionDiscontinuity:
		return "position-discontinuity"
	case EventPlaybackParametersChanged:
		return "playback-parameters-changed"
	case EventVideoSizeChanged:
		return "video-size-changed"
	case EventCues:
		return "cues"
	case EventMetadata:
		return "metadata"
	case EventLoadError:
		return "load-error"
	default:
		return "unknown"
	}
}

// Event is the aggregated engine callback. Only the fields matching Kind are set.
type Event struct {
	Kind EventKind

	PlayWhenReady bool
	State         PlaybackState
	Loading       bool
	Timeline      Timeline
	Tracks        []TrackGroup
	Params        PlaybackParameters
	VideoSize     VideoSize
	Cues          []Cue
	Metadata      []MetadataFrame
	Err           error
}

// EventHandler consumes engine events.
type EventHandler func(Event)
