package player

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Listener receives core playback events.
type Listener interface {
	OnStateChanged(playWhenReady bool, state PlaybackState)
	OnError(err error)
	OnVideoSizeChanged(width, height, unappliedRotationDegrees int, pixelWidthHeightRatio float32)
}

// CaptionListener receives timed text.
type CaptionListener interface {
	OnCues(cues []Cue)
}

// MetadataListener receives metadata parsed from the stream.
type MetadataListener interface {
	OnMetadata(frames []MetadataFrame)
}

// Callback is the TV input playback callback set.
type Callback interface {
	OnStarted()
	OnPaused()
	OnCompleted()
}

// InternalErrorListener receives errors that are not shown to the user.
// A fatal error is also reported through Listener.OnError.
type InternalErrorListener interface {
	OnRendererInitializationError(err error)
	OnLoadError(err error)
}

// InfoListener receives debugging information.
type InfoListener interface {
	OnVideoFormatEnabled(format Format)
	OnAudioFormatEnabled(format Format)
	OnLoadingChanged(loading bool)
	// OnBandwidthSample reports a transfer of bytes over elapsed and the
	// bitrate estimate, in bits per second, after it.
	OnBandwidthSample(elapsed time.Duration, bytes int64, estimate float64)
}

// registry is an insertion-ordered set compared by identity. Writers
// replace the backing slice, so a snapshot stays valid while it is iterated
// and listeners may add or remove themselves from inside a callback.
// Items must have comparable dynamic types; pointers are the usual choice.
type registry[T comparable] struct {
	mu    sync.Mutex
	items []T
}

func (r *registry[T]) add(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lo.Contains(r.items, item) {
		return false
	}
	next := make([]T, len(r.items), len(r.items)+1)
	copy(next, r.items)
	r.items = append(next, item)
	return true
}

func (r *registry[T]) remove(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !lo.Contains(r.items, item) {
		return false
	}
	r.items = lo.Without(r.items, item)
	return true
}

func (r *registry[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
