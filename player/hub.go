package player

import (
	"time"

	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/log"
)

// packReported stores the last reported state in one word: bit 0 holds
// play-when-ready, the rest the playback state.
func packReported(playWhenReady bool, state PlaybackState) uint32 {
	word := uint32(state) << 1
	if playWhenReady {
		word |= 1
	}
	return word
}

func unpackReported(word uint32) (playWhenReady bool, state PlaybackState) {
	return word&1 == 1, PlaybackState(word >> 1)
}

func (p *DemoPlayer) AddListener(l Listener) {
	p.listeners.add(l)
}

func (p *DemoPlayer) RemoveListener(l Listener) {
	p.listeners.remove(l)
}

func (p *DemoPlayer) AddCaptionListener(l CaptionListener) {
	p.captions.add(l)
}

func (p *DemoPlayer) RemoveCaptionListener(l CaptionListener) {
	p.captions.remove(l)
}

func (p *DemoPlayer) AddMetadataListener(l MetadataListener) {
	p.metadata.add(l)
}

func (p *DemoPlayer) RemoveMetadataListener(l MetadataListener) {
	p.metadata.remove(l)
}

func (p *DemoPlayer) RegisterCallback(c Callback) {
	p.callbacks.add(c)
}

func (p *DemoPlayer) UnregisterCallback(c Callback) {
	p.callbacks.remove(c)
}

// SetInternalErrorListener replaces the internal error sink. nil removes it.
func (p *DemoPlayer) SetInternalErrorListener(l InternalErrorListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.internalError = optional(l)
}

// SetInfoListener replaces the info sink. nil removes it. The sink also
// receives the samples of the player's bandwidth meter.
func (p *DemoPlayer) SetInfoListener(l InfoListener) {
	p.mu.Lock()
	p.info = optional(l)
	p.mu.Unlock()

	meter := p.BandwidthMeter()
	if l == nil {
		meter.OnSample(nil)
		return
	}
	// samples arrive on whatever goroutine feeds the meter
	meter.OnSample(func(elapsed time.Duration, bytes int64, estimate float64) {
		p.notify.postAsync(func() {
			if sink, ok := p.infoListener().Get(); ok {
				sink.OnBandwidthSample(elapsed, bytes, estimate)
			}
		})
	})
}

func optional[T comparable](v T) mo.Option[T] {
	var zero T
	if v == zero {
		return mo.None[T]()
	}
	return mo.Some(v)
}

func (p *DemoPlayer) internalErrorListener() mo.Option[InternalErrorListener] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.internalError
}

func (p *DemoPlayer) infoListener() mo.Option[InfoListener] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// reconcileAndNotify reports (play-when-ready, state) to listeners when it
// differs from the last reported pair. Passes are serialized, and their
// notifications are delivered in the order the passes ran.
func (p *DemoPlayer) reconcileAndNotify() {
	p.reconcileMu.Lock()

	playWhenReady := p.engine.PlayWhenReady()
	state := p.PlaybackState()

	previous := p.lastReported.Swap(packReported(playWhenReady, state))
	wasPlayWhenReady, wasState := unpackReported(previous)
	if wasPlayWhenReady == playWhenReady && wasState == state {
		p.reconcileMu.Unlock()
		return
	}

	log.Debugf("state %s/%t -> %s/%t", wasState, wasPlayWhenReady, state, playWhenReady)
	drain := p.notify.enqueue(func() {
		p.notifyStateChanged(wasPlayWhenReady, wasState, playWhenReady, state)
	})
	p.reconcileMu.Unlock()

	if drain {
		p.notify.drain()
	}
}

func (p *DemoPlayer) notifyStateChanged(wasPlayWhenReady bool, wasState PlaybackState, playWhenReady bool, state PlaybackState) {
	for _, l := range p.listeners.snapshot() {
		l.OnStateChanged(playWhenReady, state)
	}

	callbacks := p.callbacks.snapshot()
	if len(callbacks) == 0 {
		return
	}

	playing := playWhenReady && state == StateReady
	wasPlaying := wasPlayWhenReady && wasState == StateReady

	for _, c := range callbacks {
		switch {
		case state == StateEnded && wasState != StateEnded:
			c.OnCompleted()
		case playing && !wasPlaying:
			c.OnStarted()
		case wasPlayWhenReady && !playWhenReady:
			c.OnPaused()
		}
	}
}

func (p *DemoPlayer) notifyError(err error) {
	p.notify.post(func() {
		for _, l := range p.listeners.snapshot() {
			l.OnError(err)
		}
	})
}

func (p *DemoPlayer) onEngineEvent(e Event) {
	switch e.Kind {
	case EventPlayerStateChanged:
		p.reconcileAndNotify()

	case EventPlayerError:
		log.Errorf("playback error: %s", e.Err)
		p.notifyError(e.Err)
		// fatal: the renderers are gone until the next Prepare
		p.phase.Store(int32(phaseIdle))
		p.reconcileAndNotify()

	case EventLoadError:
		log.Warnf("load error: %s", e.Err)
		p.notify.post(func() {
			if sink, ok := p.internalErrorListener().Get(); ok {
				sink.OnLoadError(e.Err)
			}
		})

	case EventTracksChanged:
		p.onTracksChanged(e.Tracks)

	case EventLoadingChanged:
		log.Tracef("loading: %t", e.Loading)
		p.notify.post(func() {
			if sink, ok := p.infoListener().Get(); ok {
				sink.OnLoadingChanged(e.Loading)
			}
		})

	case EventCues:
		p.notify.post(func() {
			for _, l := range p.captions.snapshot() {
				l.OnCues(e.Cues)
			}
		})

	case EventMetadata:
		for _, frame := range e.Metadata {
			log.WithFields(log.LevelDebug, log.Fields{"key": frame.Key, "value": frame.Value}, "metadata")
		}
		p.notify.post(func() {
			for _, l := range p.metadata.snapshot() {
				l.OnMetadata(e.Metadata)
			}
		})

	case EventVideoSizeChanged:
		size := e.VideoSize
		p.notify.post(func() {
			for _, l := range p.listeners.snapshot() {
				l.OnVideoSizeChanged(size.Width, size.Height, size.UnappliedRotationDegrees, size.PixelWidthHeightRatio)
			}
		})

	case EventPlaybackParametersChanged:
		p.mu.Lock()
		p.params = mo.Some(e.Params)
		p.mu.Unlock()

	case EventTimelineChanged:
		log.Debugf("timeline: duration %s, seekable %t, live %t", e.Timeline.Duration, e.Timeline.Seekable, e.Timeline.Live)

	case EventPositionDiscontinuity:
		log.Tracef("position discontinuity")
	}
}

func (p *DemoPlayer) onTracksChanged(groups []TrackGroup) {
	info := p.infoListener()

	for _, g := range groups {
		format, ok := g.SelectedFormat()
		if !ok || !g.Supported {
			continue
		}

		switch g.Renderer {
		case TrackVideo:
			p.mu.Lock()
			p.videoFormat = mo.Some(format)
			p.mu.Unlock()
			p.notify.post(func() {
				if sink, ok := info.Get(); ok {
					sink.OnVideoFormatEnabled(format)
				}
			})
		case TrackAudio:
			p.notify.post(func() {
				if sink, ok := info.Get(); ok {
					sink.OnAudioFormatEnabled(format)
				}
			})
		}
	}
}
