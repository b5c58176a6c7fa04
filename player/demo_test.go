package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/network"
	. "github.com/smartystreets/goconvey/convey"
)

var nativeStates = []PlaybackState{StateIdle, StateBuffering, StateReady, StateEnded}

func newTestPlayer(uri string) (*DemoPlayer, *fakeEngine) {
	engine := newFakeEngine()
	factory := network.NewDataSourceFactory("Test", &network.BandwidthMeter{}, time.Second)
	return New(engine, media.NewResolver(factory), uri, ""), engine
}

func TestPlaybackState(t *testing.T) {
	Convey("Given a player", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/live.m3u8")

		Convey("While building, every native state reads as preparing", func() {
			p.phase.Store(int32(phaseBuilding))
			for _, native := range nativeStates {
				engine.setNative(native)
				So(p.PlaybackState(), ShouldEqual, StatePreparing)
			}
		})

		Convey("Once built, a native idle still reads as preparing", func() {
			p.phase.Store(int32(phaseBuilt))
			engine.setNative(StateIdle)
			So(p.PlaybackState(), ShouldEqual, StatePreparing)

			for _, native := range []PlaybackState{StateBuffering, StateReady, StateEnded} {
				engine.setNative(native)
				So(p.PlaybackState(), ShouldEqual, native)
			}
		})

		Convey("While idle, the native state is mirrored", func() {
			p.phase.Store(int32(phaseIdle))
			for _, native := range nativeStates {
				engine.setNative(native)
				So(p.PlaybackState(), ShouldEqual, native)
			}
		})
	})
}

func TestReconcileAndNotify(t *testing.T) {
	Convey("Given a player with a listener", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/live.m3u8")
		l := &recordingListener{}
		p.AddListener(l)

		Convey("Repeated reconciliation without a change notifies nobody", func() {
			for i := 0; i < 5; i++ {
				p.reconcileAndNotify()
			}
			So(l.changes, ShouldBeEmpty)
		})

		Convey("Each distinct transition notifies exactly once", func() {
			engine.setNative(StateBuffering)
			p.reconcileAndNotify()
			p.reconcileAndNotify()

			So(p.SetPlayWhenReady(true), ShouldBeNil)
			p.reconcileAndNotify()

			engine.setNative(StateReady)
			engine.emit(Event{Kind: EventPlayerStateChanged})
			engine.emit(Event{Kind: EventPlayerStateChanged})

			So(l.changes, ShouldResemble, []stateChange{
				{false, StateBuffering},
				{true, StateBuffering},
				{true, StateReady},
			})
		})

		Convey("Adding the same listener twice registers it once", func() {
			p.AddListener(l)
			So(p.listeners.len(), ShouldEqual, 1)

			engine.setNative(StateReady)
			p.reconcileAndNotify()
			So(l.changes, ShouldHaveLength, 1)
		})

		Convey("Removing an absent listener is a no-op", func() {
			p.RemoveListener(&recordingListener{})
			So(p.listeners.len(), ShouldEqual, 1)

			p.RemoveListener(l)
			p.RemoveListener(l)
			So(p.listeners.len(), ShouldEqual, 0)
		})

		Convey("Listeners are notified in registration order", func() {
			var order []string
			first := &orderListener{name: "first", order: &order}
			second := &orderListener{name: "second", order: &order}
			p.AddListener(first)
			p.AddListener(second)

			engine.setNative(StateReady)
			p.reconcileAndNotify()
			So(order, ShouldResemble, []string{"first", "second"})
		})

		Convey("A listener may unregister itself while being notified", func() {
			self := &reentrantListener{player: p}
			p.AddListener(self)

			engine.setNative(StateReady)
			p.reconcileAndNotify()
			So(self.calls, ShouldEqual, 1)
			So(l.changes, ShouldHaveLength, 1)

			engine.setNative(StateEnded)
			p.reconcileAndNotify()
			So(self.calls, ShouldEqual, 1)
			So(l.changes, ShouldHaveLength, 2)
		})
	})
}

func TestConcurrentNotification(t *testing.T) {
	Convey("Given a player with a listener", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/live.m3u8")
		l := &recordingListener{}
		p.AddListener(l)

		Convey("A state change arriving during a control call is reported last", func() {
			engine.setNative(StateBuffering)

			entered := make(chan struct{})
			resume := make(chan struct{})
			var once sync.Once
			engine.mu.Lock()
			engine.onStateRead = func() {
				once.Do(func() {
					close(entered)
					<-resume
				})
			}
			engine.mu.Unlock()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = p.Play()
			}()

			<-entered
			go func() {
				defer wg.Done()
				engine.setNative(StateReady)
				engine.emit(Event{Kind: EventPlayerStateChanged})
			}()
			time.Sleep(50 * time.Millisecond)
			close(resume)
			wg.Wait()

			So(l.Changes(), ShouldResemble, []stateChange{
				{true, StateBuffering},
				{true, StateReady},
			})
			playWhenReady, state := unpackReported(p.lastReported.Load())
			So(playWhenReady, ShouldBeTrue)
			So(state, ShouldEqual, StateReady)
		})

		Convey("What a listener causes is reported after it returns", func() {
			pauser := &pauseOnReady{player: p}
			p.AddListener(pauser)
			after := &recordingListener{}
			p.AddListener(after)

			So(p.Play(), ShouldBeNil)
			engine.setNative(StateReady)
			engine.emit(Event{Kind: EventPlayerStateChanged})

			want := []stateChange{
				{true, StateIdle},
				{true, StateReady},
				{false, StateReady},
			}
			So(l.Changes(), ShouldResemble, want)
			So(after.Changes(), ShouldResemble, want)
			So(pauser.err, ShouldBeNil)
		})

		Convey("Bandwidth samples reach the info sink", func() {
			sinks := &recordingSinks{samples: make(chan float64, 1)}
			p.SetInfoListener(sinks)

			p.BandwidthMeter().Sample(125000, time.Second)
			select {
			case estimate := <-sinks.samples:
				So(estimate, ShouldEqual, 1e6)
			case <-time.After(2 * time.Second):
				So("no bandwidth sample", ShouldBeEmpty)
			}

			Convey("Until the sink is removed", func() {
				p.SetInfoListener(nil)
				p.BandwidthMeter().Sample(125000, time.Second)
				select {
				case <-sinks.samples:
					So("unexpected bandwidth sample", ShouldBeEmpty)
				case <-time.After(100 * time.Millisecond):
				}
			})
		})
	})
}

// pauseOnReady pauses the player the first time it reports ready and playing.
type pauseOnReady struct {
	recordingListener
	player *DemoPlayer
	paused bool
	err    error
}

func (l *pauseOnReady) OnStateChanged(playWhenReady bool, state PlaybackState) {
	if state == StateReady && playWhenReady && !l.paused {
		l.paused = true
		l.err = l.player.Pause()
	}
}

type orderListener struct {
	recordingListener
	name  string
	order *[]string
}

func (l *orderListener) OnStateChanged(bool, PlaybackState) {
	*l.order = append(*l.order, l.name)
}

type reentrantListener struct {
	recordingListener
	player *DemoPlayer
	calls  int
}

func (l *reentrantListener) OnStateChanged(bool, PlaybackState) {
	l.calls++
	l.player.RemoveListener(l)
	_ = l.player.PlaybackState()
}

func TestCallbacks(t *testing.T) {
	Convey("Given a player with a TV callback", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/live.m3u8")
		c := &recordingCallback{}
		p.RegisterCallback(c)
		p.RegisterCallback(c)

		engine.setNative(StateReady)
		So(p.Play(), ShouldBeNil)
		So(p.Pause(), ShouldBeNil)
		So(p.Play(), ShouldBeNil)

		engine.setNative(StateEnded)
		engine.emit(Event{Kind: EventPlayerStateChanged})

		So(c.events, ShouldResemble, []string{"started", "paused", "started", "completed"})

		Convey("Unregistered callbacks are not invoked", func() {
			p.UnregisterCallback(c)
			So(p.Pause(), ShouldBeNil)
			So(c.events, ShouldHaveLength, 4)
		})
	})
}

func TestPrepare(t *testing.T) {
	Convey("Given a player", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/live.m3u8")
		l := &recordingListener{}
		p.AddListener(l)

		Convey("Prepare builds the renderers", func() {
			So(p.Prepare(context.Background()), ShouldBeNil)
			So(buildPhase(p.phase.Load()), ShouldEqual, phaseBuilt)
			So(engine.Calls(), ShouldResemble, []string{"prepare"})
			So(engine.prepared.Descriptor().Kind, ShouldEqual, media.ContentTypeHLS)
			So(l.changes, ShouldResemble, []stateChange{{false, StatePreparing}})

			engine.setNative(StateReady)
			engine.emit(Event{Kind: EventPlayerStateChanged})
			So(p.PlaybackState(), ShouldEqual, StateReady)

			Convey("Preparing again stops the engine and clears the cached video state first", func() {
				p.mu.Lock()
				p.videoFormat = mo.Some(Format{ID: "1", Width: 1920, Height: 1080})
				p.mu.Unlock()

				var phaseAtStop buildPhase
				var formatAtStop mo.Option[Format]
				engine.onStop = func() {
					phaseAtStop = buildPhase(p.phase.Load())
					formatAtStop = p.VideoFormat()
				}

				var formatCleared, rendererCleared bool
				engine.onPrepare = func() {
					formatCleared = p.VideoFormat().IsAbsent()
					p.mu.Lock()
					rendererCleared = p.videoRenderer.IsAbsent()
					p.mu.Unlock()
				}

				So(p.Prepare(context.Background()), ShouldBeNil)
				So(engine.Calls(), ShouldResemble, []string{"prepare", "stop", "prepare"})
				So(phaseAtStop, ShouldEqual, phaseBuilt)
				So(formatAtStop.IsPresent(), ShouldBeTrue)
				So(formatCleared, ShouldBeTrue)
				So(rendererCleared, ShouldBeTrue)
			})
		})

		Convey("An engine failure takes the renderer error path", func() {
			sinks := &recordingSinks{}
			p.SetInternalErrorListener(sinks)
			So(p.Play(), ShouldBeNil)

			engine.prepareErr = errors.New("no decoder")
			err := p.Prepare(context.Background())

			var rendererErr *RendererInitializationError
			So(errors.As(err, &rendererErr), ShouldBeTrue)
			So(sinks.rendererErrors, ShouldHaveLength, 1)
			So(l.errors, ShouldHaveLength, 1)
			So(buildPhase(p.phase.Load()), ShouldEqual, phaseIdle)
			So(p.PlaybackState(), ShouldEqual, StateIdle)
			So(p.PlayWhenReady(), ShouldBeTrue)
		})

		Convey("An unsupported container fails the prepare call without a renderer error", func() {
			p, engine := newTestPlayer("rtsp://camera.local/stream")
			l := &recordingListener{}
			p.AddListener(l)
			sinks := &recordingSinks{}
			p.SetInternalErrorListener(sinks)

			err := p.Prepare(context.Background())
			So(errors.Is(err, media.ErrUnsupportedContainerKind), ShouldBeTrue)
			So(engine.Calls(), ShouldBeEmpty)
			So(l.errors, ShouldHaveLength, 1)
			So(errors.Is(l.errors[0], media.ErrUnsupportedContainerKind), ShouldBeTrue)
			So(sinks.rendererErrors, ShouldBeEmpty)
			So(p.PlaybackState(), ShouldEqual, StateIdle)
		})

		Convey("Release returns to idle and drops the surface", func() {
			So(p.Prepare(context.Background()), ShouldBeNil)
			So(p.SetSurface(7), ShouldBeNil)

			So(p.Release(), ShouldBeNil)
			So(buildPhase(p.phase.Load()), ShouldEqual, phaseIdle)
			So(p.Surface().IsAbsent(), ShouldBeTrue)
			So(engine.Calls(), ShouldContain, "release")
		})
	})
}

func TestSurface(t *testing.T) {
	Convey("Given a player that has not been prepared", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/movie.mp4")

		Convey("SetSurface stores the handle without touching the engine", func() {
			So(p.SetSurface(1), ShouldBeNil)
			So(p.Surface().MustGet(), ShouldEqual, Surface(1))
			So(engine.Sent(), ShouldBeEmpty)

			Convey("And pushes it once the video renderer appears", func() {
				So(p.Prepare(context.Background()), ShouldBeNil)

				sent := engine.Sent()
				So(sent, ShouldHaveLength, 1)
				So(sent[0].Kind, ShouldEqual, MsgSetSurface)
				So(sent[0].Target.TrackType(), ShouldEqual, TrackVideo)
				So(engine.ActiveSurface().MustGet(), ShouldEqual, Surface(1))
			})
		})

		Convey("Without a video renderer the push is skipped", func() {
			engine.renderers[TrackVideo] = mo.None[Renderer]()
			So(p.Prepare(context.Background()), ShouldBeNil)
			So(p.SetSurface(2), ShouldBeNil)
			So(engine.Sent(), ShouldBeEmpty)
		})
	})

	Convey("Given a prepared player showing surface S1", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/movie.mp4")
		So(p.Prepare(context.Background()), ShouldBeNil)
		So(p.SetSurface(1), ShouldBeNil)
		So(engine.ActiveSurface().MustGet(), ShouldEqual, Surface(1))

		Convey("A new surface replaces it", func() {
			So(p.SetSurface(2), ShouldBeNil)
			So(engine.ActiveSurface().MustGet(), ShouldEqual, Surface(2))
		})

		Convey("BlockingClearSurface returns with the render path released", func() {
			So(p.BlockingClearSurface(context.Background()), ShouldBeNil)
			So(engine.ActiveSurface().IsAbsent(), ShouldBeTrue)
			So(p.Surface().IsAbsent(), ShouldBeTrue)
			So(engine.blocking, ShouldHaveLength, 1)
		})
	})
}

func TestControls(t *testing.T) {
	Convey("Given a prepared player", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/movie.mp4")
		So(p.Prepare(context.Background()), ShouldBeNil)

		Convey("Volume goes to the audio renderer", func() {
			So(p.SetVolume(0.25), ShouldBeNil)
			sent := engine.Sent()
			last := sent[len(sent)-1]
			So(last.Kind, ShouldEqual, MsgSetVolume)
			So(last.Target.TrackType(), ShouldEqual, TrackAudio)
			So(engine.volume, ShouldEqual, float32(0.25))
		})

		Convey("Playback speed defaults to 1", func() {
			So(p.PlaybackSpeed(), ShouldEqual, DefaultPlaybackSpeed)

			So(p.SetPlaybackParams(PlaybackParameters{Speed: 1.5, Pitch: 1}), ShouldBeNil)
			So(p.PlaybackSpeed(), ShouldEqual, float32(1.5))

			engine.emit(Event{Kind: EventPlaybackParametersChanged, Params: PlaybackParameters{Speed: 2}})
			So(p.PlaybackSpeed(), ShouldEqual, float32(2))
		})

		Convey("Queries are forwarded", func() {
			So(p.CurrentPosition(), ShouldEqual, 42*time.Second)
			So(p.Duration() < 0, ShouldBeTrue)
			So(p.BufferedPercentage(), ShouldEqual, 37)
			So(p.SeekTo(time.Minute), ShouldBeNil)
			So(engine.Calls(), ShouldContain, "seek")
		})

		Convey("Backgrounded is a plain flag", func() {
			So(p.Backgrounded(), ShouldBeFalse)
			p.SetBackgrounded(true)
			So(p.Backgrounded(), ShouldBeTrue)
		})
	})
}

func TestEngineEvents(t *testing.T) {
	Convey("Given a prepared player with every listener kind", t, func() {
		p, engine := newTestPlayer("https://cdn.example.com/movie.mp4")
		l := &recordingListener{}
		sinks := &recordingSinks{}
		p.AddListener(l)
		p.AddCaptionListener(sinks)
		p.AddMetadataListener(sinks)
		p.SetInternalErrorListener(sinks)
		p.SetInfoListener(sinks)
		So(p.Prepare(context.Background()), ShouldBeNil)
		engine.setNative(StateReady)
		engine.emit(Event{Kind: EventPlayerStateChanged})

		Convey("A player error reaches every listener and leaves the player idle", func() {
			engine.setNative(StateIdle)
			cause := &EngineError{Op: "load", Err: errors.New("404")}
			engine.emit(Event{Kind: EventPlayerError, Err: cause})

			So(l.errors, ShouldResemble, []error{cause})
			So(p.PlaybackState(), ShouldEqual, StateIdle)
			So(l.changes[len(l.changes)-1], ShouldResemble, stateChange{false, StateIdle})
		})

		Convey("Load errors go to the internal error sink only", func() {
			engine.emit(Event{Kind: EventLoadError, Err: errors.New("timeout")})
			So(sinks.loadErrors, ShouldHaveLength, 1)
			So(l.errors, ShouldBeEmpty)
		})

		Convey("Cues and metadata are forwarded without suppression", func() {
			cues := []Cue{{Text: "hello"}}
			engine.emit(Event{Kind: EventCues, Cues: cues})
			engine.emit(Event{Kind: EventCues, Cues: cues})
			So(sinks.cues, ShouldHaveLength, 2)

			frames := []MetadataFrame{{Key: "title", Value: "News"}}
			engine.emit(Event{Kind: EventMetadata, Metadata: frames})
			So(sinks.metadata, ShouldResemble, [][]MetadataFrame{frames})
		})

		Convey("Video size reaches the listeners", func() {
			size := VideoSize{Width: 1280, Height: 720, PixelWidthHeightRatio: 1}
			engine.emit(Event{Kind: EventVideoSizeChanged, VideoSize: size})
			So(l.sizes, ShouldResemble, []VideoSize{size})
		})

		Convey("Selected tracks are cached and reported", func() {
			video := Format{ID: "1", MimeType: "video/h264", Width: 1920, Height: 1080}
			audio := Format{ID: "2", MimeType: "audio/aac"}
			engine.emit(Event{Kind: EventTracksChanged, Tracks: []TrackGroup{
				{Renderer: TrackAudio, Formats: []Format{audio}, Selected: 0, Supported: true},
				{Renderer: TrackVideo, Formats: []Format{video}, Selected: 0, Supported: true},
				{Renderer: TrackText, Formats: []Format{{ID: "3"}}, Selected: -1, Supported: true},
			}})

			So(p.VideoFormat().MustGet(), ShouldResemble, video)
			So(sinks.videoFormats, ShouldResemble, []Format{video})
			So(sinks.audioFormats, ShouldResemble, []Format{audio})
		})

		Convey("Loading changes reach the info sink", func() {
			engine.emit(Event{Kind: EventLoadingChanged, Loading: true})
			So(sinks.loading, ShouldResemble, []bool{true})
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry", t, func() {
		var r registry[*recordingListener]
		a, b := &recordingListener{}, &recordingListener{}

		So(r.add(a), ShouldBeTrue)
		So(r.add(b), ShouldBeTrue)
		So(r.add(a), ShouldBeFalse)

		Convey("A snapshot survives later writes", func() {
			snapshot := r.snapshot()
			So(r.remove(a), ShouldBeTrue)
			So(snapshot, ShouldResemble, []*recordingListener{a, b})
			So(r.snapshot(), ShouldResemble, []*recordingListener{b})
		})

		Convey("Removing twice reports the second removal", func() {
			So(r.remove(b), ShouldBeTrue)
			So(r.remove(b), ShouldBeFalse)
			So(r.len(), ShouldEqual, 1)
		})
	})
}

func TestReportedWord(t *testing.T) {
	Convey("The reported pair round-trips through one word", t, func() {
		for _, state := range append(nativeStates, StatePreparing) {
			for _, pwr := range []bool{false, true} {
				gotPWR, gotState := unpackReported(packReported(pwr, state))
				So(gotPWR, ShouldEqual, pwr)
				So(gotState, ShouldEqual, state)
			}
		}
	})
}
