package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/network"
	"go.uber.org/atomic"
)

type buildPhase int32

const (
	phaseIdle buildPhase = iota
	phaseBuilding
	phaseBuilt
)

func (b buildPhase) String() string {
	switch b {
	case phaseIdle:
		return "idle"
	case phaseBuilding:
		return "building"
	case phaseBuilt:
		return "built"
	default:
		return "unknown"
	}
}

// DemoPlayer is a playback facade over an Engine.
//
// Public methods are meant to be called from one control goroutine. Engine
// events arrive on the engine's goroutine. Notifications from both are
// delivered one at a time in the order they were produced, by whichever
// goroutine finds the queue idle; listeners may call back into the player
// from inside a notification, and what that call reports is delivered once
// the current notification returns.
type DemoPlayer struct {
	engine            Engine
	resolver          *media.Resolver
	uri               string
	overrideExtension string

	phase        atomic.Int32
	lastReported atomic.Uint32
	backgrounded atomic.Bool

	reconcileMu sync.Mutex
	notify      notifier

	mu            sync.Mutex
	surface       mo.Option[Surface]
	videoRenderer mo.Option[Renderer]
	audioRenderer mo.Option[Renderer]
	videoFormat   mo.Option[Format]
	params        mo.Option[PlaybackParameters]
	internalError mo.Option[InternalErrorListener]
	info          mo.Option[InfoListener]

	listeners registry[Listener]
	captions  registry[CaptionListener]
	metadata  registry[MetadataListener]
	callbacks registry[Callback]

	unsubscribe func()
}

// New returns a player for uri. A non-empty overrideExtension replaces the
// content type inferred from uri.
func New(engine Engine, resolver *media.Resolver, uri, overrideExtension string) *DemoPlayer {
	p := &DemoPlayer{
		engine:            engine,
		resolver:          resolver,
		uri:               uri,
		overrideExtension: overrideExtension,
	}
	p.lastReported.Store(packReported(false, StateIdle))
	p.unsubscribe = engine.Subscribe(p.onEngineEvent)
	return p
}

// URI returns the content URI the player prepares.
func (p *DemoPlayer) URI() string {
	return p.uri
}

// BandwidthMeter returns the meter shared by every data source of the player.
func (p *DemoPlayer) BandwidthMeter() *network.BandwidthMeter {
	return p.resolver.DataSource().Meter()
}

// PlaybackState combines the build phase with the engine's native state.
func (p *DemoPlayer) PlaybackState() PlaybackState {
	switch buildPhase(p.phase.Load()) {
	case phaseBuilding:
		return StatePreparing
	case phaseBuilt:
		native := p.engine.PlaybackState()
		if native == StateIdle {
			return StatePreparing
		}
		return native
	default:
		return p.engine.PlaybackState()
	}
}

// Prepare (re)loads the content. A player that already built its renderers
// stops the engine first.
func (p *DemoPlayer) Prepare(ctx context.Context) error {
	if buildPhase(p.phase.Load()) == phaseBuilt {
		if err := p.engine.Stop(); err != nil {
			log.Warnf("stopping engine before prepare: %s", err)
		}
	}

	p.mu.Lock()
	p.videoFormat = mo.None[Format]()
	p.videoRenderer = mo.None[Renderer]()
	p.mu.Unlock()

	p.phase.Store(int32(phaseBuilding))
	p.reconcileAndNotify()

	src, err := p.resolver.Resolve(p.uri, p.overrideExtension)
	if err != nil {
		log.Errorf("resolving %s: %s", p.uri, err)
		p.onPrepareFailed(err)
		return err
	}

	if err := p.engine.Prepare(ctx, src, false, false); err != nil {
		err = &RendererInitializationError{Err: err}
		p.onRenderersError(err)
		return err
	}

	p.onRenderers(p.engine.Renderers())
	return nil
}

func (p *DemoPlayer) onRenderers(renderers Renderers) {
	p.mu.Lock()
	p.videoRenderer = renderers.Get(TrackVideo)
	p.audioRenderer = renderers.Get(TrackAudio)
	p.mu.Unlock()

	for i, r := range renderers {
		if r.IsAbsent() {
			log.Debugf("no %s renderer for %s", TrackType(i), p.uri)
		}
	}

	if err := p.pushSurface(context.Background(), false); err != nil {
		log.Warn(err)
	}
	p.phase.Store(int32(phaseBuilt))
	p.reconcileAndNotify()
}

func (p *DemoPlayer) onRenderersError(err error) {
	log.Errorf("building renderers for %s: %s", p.uri, err)

	p.notify.post(func() {
		if sink, ok := p.internalErrorListener().Get(); ok {
			sink.OnRendererInitializationError(err)
		}
	})
	p.onPrepareFailed(err)
}

// onPrepareFailed reports err to listeners and drops back to idle.
func (p *DemoPlayer) onPrepareFailed(err error) {
	p.notifyError(err)
	p.phase.Store(int32(phaseIdle))
	p.reconcileAndNotify()
}

// Release tears down the engine. The player must be prepared again, or
// discarded, afterwards.
func (p *DemoPlayer) Release() error {
	p.phase.Store(int32(phaseIdle))

	p.mu.Lock()
	p.surface = mo.None[Surface]()
	hooked := p.info.IsPresent()
	p.mu.Unlock()

	if hooked {
		p.BandwidthMeter().OnSample(nil)
	}

	err := p.engine.Release()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// SetPlayWhenReady forwards the flag to the engine and reports the change.
func (p *DemoPlayer) SetPlayWhenReady(playWhenReady bool) error {
	if err := p.engine.SetPlayWhenReady(playWhenReady); err != nil {
		return err
	}
	p.reconcileAndNotify()
	return nil
}

func (p *DemoPlayer) Play() error {
	return p.SetPlayWhenReady(true)
}

func (p *DemoPlayer) Pause() error {
	return p.SetPlayWhenReady(false)
}

func (p *DemoPlayer) PlayWhenReady() bool {
	return p.engine.PlayWhenReady()
}

func (p *DemoPlayer) Stop() error {
	return p.engine.Stop()
}

func (p *DemoPlayer) SeekTo(position time.Duration) error {
	return p.engine.SeekTo(position)
}

func (p *DemoPlayer) CurrentPosition() time.Duration {
	return p.engine.CurrentPosition()
}

// Duration is negative while unknown.
func (p *DemoPlayer) Duration() time.Duration {
	return p.engine.Duration()
}

func (p *DemoPlayer) BufferedPercentage() int {
	return p.engine.BufferedPercentage()
}

// SetVolume sends volume, in [0, 1], to the audio renderer.
func (p *DemoPlayer) SetVolume(volume float32) error {
	p.mu.Lock()
	audio := p.audioRenderer
	p.mu.Unlock()

	target, ok := audio.Get()
	if !ok {
		log.Debugf("no audio renderer, volume %.2f not applied", volume)
		return nil
	}
	return p.engine.SendMessage(Message{Target: target, Kind: MsgSetVolume, Payload: volume})
}

// SetPlaybackParams changes the playback speed.
func (p *DemoPlayer) SetPlaybackParams(params PlaybackParameters) error {
	if err := p.engine.SetPlaybackParameters(params); err != nil {
		return err
	}
	p.mu.Lock()
	p.params = mo.Some(params)
	p.mu.Unlock()
	return nil
}

// PlaybackSpeed returns DefaultPlaybackSpeed until parameters are known.
func (p *DemoPlayer) PlaybackSpeed() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if params, ok := p.params.Get(); ok {
		return params.Speed
	}
	return DefaultPlaybackSpeed
}

// VideoFormat returns the selected video format of the current source.
func (p *DemoPlayer) VideoFormat() mo.Option[Format] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoFormat
}

func (p *DemoPlayer) SetBackgrounded(backgrounded bool) {
	p.backgrounded.Store(backgrounded)
}

func (p *DemoPlayer) Backgrounded() bool {
	return p.backgrounded.Load()
}
