// Package player adapts an external media engine into a small playback facade.
//
// DemoPlayer derives a coarse playback state from its own renderer build
// phase and the engine's native state, republishes engine events to typed
// listener registries, and binds an output surface to the engine's video
// path. The engine itself (decoding, buffering, rendering) stays external;
// MPV drives mpv over its JSON-IPC socket.
package player

import (
	"github.com/samber/mo"
)

// PlaybackState is the coarse state reported to listeners.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StatePreparing
	StateBuffering
	StateReady
	StateEnded
)

// String returns the state name.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// TrackType indexes renderer slots.
type TrackType int

const (
	TrackAudio TrackType = iota
	TrackVideo
	TrackText
	TrackMetadata
)

// RendererCount is the number of renderer slots an engine exposes.
const RendererCount = 4

func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "audio"
	case TrackVideo:
		return "video"
	case TrackText:
		return "text"
	case TrackMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Renderer is an engine output path messages can be addressed to.
type Renderer interface {
	TrackType() TrackType
	Name() string
}

// Renderers holds one optional renderer per TrackType. A slot is absent
// when the engine has no output for that track type.
type Renderers [RendererCount]mo.Option[Renderer]

// Get returns the slot for t.
func (r Renderers) Get(t TrackType) mo.Option[Renderer] {
	if t < 0 || int(t) >= RendererCount {
		return mo.None[Renderer]()
	}
	return r[t]
}

// Surface is a native window handle owned by the embedding UI.
type Surface uint64

// PlaybackParameters controls the playback rate.
type PlaybackParameters struct {
	Speed float32
	Pitch float32
}

// DefaultPlaybackSpeed is reported until explicit parameters are set.
const DefaultPlaybackSpeed float32 = 1.0
