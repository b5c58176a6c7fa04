package player

import (
	"context"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/media"
)

type fakeRenderer struct {
	kind TrackType
}

func (r *fakeRenderer) TrackType() TrackType { return r.kind }
func (r *fakeRenderer) Name() string         { return "fake-" + r.kind.String() }

// fakeEngine applies messages synchronously and records every call.
type fakeEngine struct {
	mu            sync.Mutex
	native        PlaybackState
	playWhenReady bool
	renderers     Renderers
	prepareErr    error
	calls         []string
	sent          []Message
	blocking      []Message
	activeSurface mo.Option[Surface]
	volume        float32
	prepared      media.Source
	handlers      []EventHandler

	onStop      func()
	onPrepare   func()
	onStateRead func() // runs after the native state is read, outside the lock
}

func newFakeEngine() *fakeEngine {
	var renderers Renderers
	renderers[TrackAudio] = mo.Some[Renderer](&fakeRenderer{kind: TrackAudio})
	renderers[TrackVideo] = mo.Some[Renderer](&fakeRenderer{kind: TrackVideo})
	return &fakeEngine{renderers: renderers}
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Prepare(_ context.Context, src media.Source, _, _ bool) error {
	f.record("prepare")
	if f.onPrepare != nil {
		f.onPrepare()
	}
	if f.prepareErr != nil {
		return f.prepareErr
	}
	f.mu.Lock()
	f.prepared = src
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Renderers() Renderers {
	return f.renderers
}

func (f *fakeEngine) SetPlayWhenReady(playWhenReady bool) error {
	f.mu.Lock()
	f.playWhenReady = playWhenReady
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) PlayWhenReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playWhenReady
}

func (f *fakeEngine) PlaybackState() PlaybackState {
	f.mu.Lock()
	state, read := f.native, f.onStateRead
	f.mu.Unlock()

	if read != nil {
		read()
	}
	return state
}

func (f *fakeEngine) setNative(state PlaybackState) {
	f.mu.Lock()
	f.native = state
	f.mu.Unlock()
}

func (f *fakeEngine) SeekTo(time.Duration) error {
	f.record("seek")
	return nil
}

func (f *fakeEngine) CurrentPosition() time.Duration                 { return 42 * time.Second }
func (f *fakeEngine) Duration() time.Duration                        { return -1 }
func (f *fakeEngine) BufferedPercentage() int                        { return 37 }
func (f *fakeEngine) SetPlaybackParameters(PlaybackParameters) error { return nil }

func (f *fakeEngine) Stop() error {
	f.record("stop")
	if f.onStop != nil {
		f.onStop()
	}
	return nil
}

func (f *fakeEngine) Release() error {
	f.record("release")
	return nil
}

func (f *fakeEngine) apply(msg Message) {
	switch msg.Kind {
	case MsgSetSurface:
		f.activeSurface = msg.Payload.(mo.Option[Surface])
	case MsgSetVolume:
		f.volume = msg.Payload.(float32)
	}
}

func (f *fakeEngine) SendMessage(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	f.apply(msg)
	return nil
}

func (f *fakeEngine) BlockingSendMessage(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocking = append(f.blocking, msg)
	f.apply(msg)
	return nil
}

func (f *fakeEngine) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func (f *fakeEngine) ActiveSurface() mo.Option[Surface] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeSurface
}

func (f *fakeEngine) Subscribe(h EventHandler) func() {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeEngine) emit(e Event) {
	f.mu.Lock()
	handlers := append([]EventHandler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

type stateChange struct {
	playWhenReady bool
	state         PlaybackState
}

type recordingListener struct {
	mu      sync.Mutex
	changes []stateChange
	errors  []error
	sizes   []VideoSize
}

func (l *recordingListener) OnStateChanged(playWhenReady bool, state PlaybackState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, stateChange{playWhenReady, state})
}

func (l *recordingListener) OnError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

func (l *recordingListener) OnVideoSizeChanged(w, h, rotation int, ratio float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sizes = append(l.sizes, VideoSize{w, h, rotation, ratio})
}

func (l *recordingListener) Changes() []stateChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]stateChange(nil), l.changes...)
}

type recordingCallback struct {
	events []string
}

func (c *recordingCallback) OnStarted()   { c.events = append(c.events, "started") }
func (c *recordingCallback) OnPaused()    { c.events = append(c.events, "paused") }
func (c *recordingCallback) OnCompleted() { c.events = append(c.events, "completed") }

type recordingSinks struct {
	rendererErrors []error
	loadErrors     []error
	videoFormats   []Format
	audioFormats   []Format
	loading        []bool
	cues           [][]Cue
	metadata       [][]MetadataFrame

	samples chan float64
}

func (s *recordingSinks) OnRendererInitializationError(err error) {
	s.rendererErrors = append(s.rendererErrors, err)
}
func (s *recordingSinks) OnLoadError(err error)             { s.loadErrors = append(s.loadErrors, err) }
func (s *recordingSinks) OnVideoFormatEnabled(f Format)     { s.videoFormats = append(s.videoFormats, f) }
func (s *recordingSinks) OnAudioFormatEnabled(f Format)     { s.audioFormats = append(s.audioFormats, f) }
func (s *recordingSinks) OnLoadingChanged(loading bool)     { s.loading = append(s.loading, loading) }
func (s *recordingSinks) OnCues(cues []Cue)                 { s.cues = append(s.cues, cues) }
func (s *recordingSinks) OnMetadata(frames []MetadataFrame) { s.metadata = append(s.metadata, frames) }

func (s *recordingSinks) OnBandwidthSample(_ time.Duration, _ int64, estimate float64) {
	if s.samples != nil {
		s.samples <- estimate
	}
}
