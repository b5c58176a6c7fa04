package player

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/sampletvinput/tvplay/log"
	"github.com/sampletvinput/tvplay/media"
	"github.com/sampletvinput/tvplay/network"
	"github.com/sampletvinput/tvplay/util"
	"github.com/sampletvinput/tvplay/where"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"
)

const (
	socketWaitDelay = 300 * time.Millisecond
	quitTimeout     = 3 * time.Second
	detachPollDelay = 50 * time.Millisecond
	messageQueueLen = 32
)

// MPVOptions configures the mpv process.
type MPVOptions struct {
	// Path is the mpv executable, looked up in PATH when not absolute.
	Path string
	// SocketWaitRetries bounds how often the IPC socket is polled on start.
	SocketWaitRetries int
	// NoVideo starts mpv without a video output; the video renderer is then absent.
	NoVideo bool
	// Meter receives mpv's network cache speed samples.
	Meter *network.BandwidthMeter
}

type mpvRenderer struct {
	kind TrackType
	name string
}

func (r *mpvRenderer) TrackType() TrackType { return r.kind }
func (r *mpvRenderer) Name() string         { return r.name }

type queuedMessage struct {
	ctx  context.Context
	msg  Message
	done chan error // nil for fire-and-forget messages
}

type subscription struct {
	handler EventHandler
}

// eventPump buffers events between the IPC reader and the goroutine that
// hands them to subscribers. It never blocks the reader.
type eventPump struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
}

func newEventPump() *eventPump {
	return &eventPump{wake: make(chan struct{}, 1)}
}

func (q *eventPump) push(events ...Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, events...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventPump) take() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.pending
	q.pending = nil
	return events
}

// MPV is an Engine backed by an mpv process driven over JSON-IPC.
type MPV struct {
	opts       MPVOptions
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	done       chan struct{}
	ipc        *ipcConn
	released   atomic.Bool

	mu        sync.Mutex
	state     propertyState
	renderers Renderers

	subscribers registry[*subscription]
	events      *eventPump
	queue       chan queuedMessage
	workers     conc.WaitGroup
}

var _ Engine = (*MPV)(nil)

// StartMPV spawns mpv idle and paused, and connects to its IPC socket.
func StartMPV(ctx context.Context, opts MPVOptions) (*MPV, error) {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.SocketWaitRetries <= 0 {
		opts.SocketWaitRetries = 10
	}

	m := newMPV(opts, filepath.Join(where.Sockets(), fmt.Sprintf("mpv-%s.sock", uuid.NewString())))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--keep-open=yes",
		"--pause",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
	}
	if opts.NoVideo {
		args = append(args, "--vid=no", "--force-window=no")
	} else {
		args = append(args, "--force-window=yes")
	}

	m.cmd = exec.Command(opts.Path, args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}
	log.Infof("started %s (pid %d) on %s", opts.Path, m.cmd.Process.Pid, m.socketPath)

	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(ctx); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}

	conn, err := dialIPC(m.socketPath)
	if err != nil {
		_ = killProcess(m.cmd)
		return nil, err
	}

	if err := m.attach(ctx, conn); err != nil {
		_ = m.Release()
		return nil, err
	}
	return m, nil
}

func newMPV(opts MPVOptions, socketPath string) *MPV {
	return &MPV{
		opts:       opts,
		socketPath: socketPath,
		exited:     make(chan struct{}),
		done:       make(chan struct{}),
		state:      newPropertyState(opts.Meter),
		events:     newEventPump(),
		queue:      make(chan queuedMessage, messageQueueLen),
	}
}

// attach starts the reader, event and queue goroutines on conn and
// registers the property observers.
func (m *MPV) attach(ctx context.Context, conn *ipcConn) error {
	m.ipc = conn

	// not a worker: a subscriber may call Release from inside a handler
	go m.pumpEvents()
	m.workers.Go(m.readEvents)
	m.workers.Go(m.drainQueue)
	m.workers.Go(m.watchProcess)

	for i, name := range observedProperties {
		if _, err := m.command(ctx, "observe_property", i+1, name); err != nil {
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}
	return nil
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket(ctx context.Context) error {
	for i := 0; i < m.opts.SocketWaitRetries; i++ {
		select {
		case <-time.After(socketWaitDelay):
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return errors.New("mpv exited before socket was ready")
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, m.opts.SocketWaitRetries)
}

func (m *MPV) readEvents() {
	if err := m.ipc.readLoop(m.handleMessage); err != nil {
		log.Warnf("mpv event reader: %s", err)
	}
}

// handleMessage runs on the reader goroutine. Subscribers are called from
// pumpEvents instead, so a handler may issue commands whose replies only the
// reader can deliver.
func (m *MPV) handleMessage(msg ipcMessage) {
	m.mu.Lock()
	events := m.state.apply(msg)
	m.mu.Unlock()

	m.events.push(events...)
}

func (m *MPV) pumpEvents() {
	for {
		select {
		case <-m.events.wake:
		case <-m.done:
			return
		}
		m.dispatch(m.events.take())
	}
}

func (m *MPV) dispatch(events []Event) {
	for _, e := range events {
		for _, s := range m.subscribers.snapshot() {
			s.handler(e)
		}
	}
}

// watchProcess reports an mpv exit that Release did not ask for.
func (m *MPV) watchProcess() {
	select {
	case <-m.exited:
	case <-m.done:
		return
	}
	if m.released.Load() {
		return
	}
	log.Error("mpv exited unexpectedly")

	m.mu.Lock()
	m.state.idle, m.state.loaded = true, false
	m.mu.Unlock()

	m.events.push(Event{Kind: EventPlayerError, Err: &EngineError{Op: "process", Err: errors.New("mpv exited")}})
	_ = m.ipc.Close()
}

func (m *MPV) drainQueue() {
	for {
		var q queuedMessage
		select {
		case q = <-m.queue:
		case <-m.done:
			return
		}

		err := m.applyMessage(q.ctx, q.msg)
		if q.done != nil {
			q.done <- err
			continue
		}
		if err != nil {
			log.Warnf("renderer message %s to %s: %s", q.msg.Kind, q.msg.Target.Name(), err)
		}
	}
}

// Subscribe registers h for engine events.
func (m *MPV) Subscribe(h EventHandler) (unsubscribe func()) {
	s := &subscription{handler: h}
	m.subscribers.add(s)
	return func() { m.subscribers.remove(s) }
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// Prepare loads the source into mpv, replacing whatever was playing.
func (m *MPV) Prepare(ctx context.Context, src media.Source, resetPosition, resetState bool) error {
	d := src.Descriptor()
	target := mediaTarget(d)

	if d.DataSource != nil {
		if err := m.setProperty(ctx, "user-agent", d.DataSource.UserAgent()); err != nil {
			return err
		}
	}
	if err := m.setProperty(ctx, "demuxer-lavf-format", demuxerHint(d.Kind)); err != nil {
		return err
	}

	start := "none"
	if resetPosition {
		start = "0"
	}
	if err := m.setProperty(ctx, "start", start); err != nil {
		return err
	}

	if resetState {
		for _, prop := range []string{"aid", "sid"} {
			if err := m.setProperty(ctx, prop, "auto"); err != nil {
				return err
			}
		}
	}

	if _, err := m.command(ctx, "loadfile", target, "replace"); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}
	log.Infof("loading %s as %s", target, d.Kind)

	var renderers Renderers
	renderers[TrackAudio] = mo.Some[Renderer](&mpvRenderer{kind: TrackAudio, name: "ao"})
	if !m.opts.NoVideo {
		renderers[TrackVideo] = mo.Some[Renderer](&mpvRenderer{kind: TrackVideo, name: "vo"})
	}
	renderers[TrackText] = mo.Some[Renderer](&mpvRenderer{kind: TrackText, name: "sub"})

	m.mu.Lock()
	m.renderers = renderers
	m.mu.Unlock()
	return nil
}

// mediaTarget returns what loadfile receives for d: a path for local files,
// the URI otherwise.
func mediaTarget(d media.Descriptor) string {
	if d.URI.Scheme == "file" {
		return filepath.FromSlash(d.URI.Path)
	}
	return d.URI.String()
}

func demuxerHint(kind media.ContentType) string {
	switch kind {
	case media.ContentTypeHLS:
		return "hls"
	case media.ContentTypeDASH:
		return "dash"
	default:
		return ""
	}
}

func (m *MPV) Renderers() Renderers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderers
}

func (m *MPV) SetPlayWhenReady(playWhenReady bool) error {
	if err := m.setProperty(context.Background(), "pause", !playWhenReady); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.pause = !playWhenReady
	m.mu.Unlock()
	return nil
}

func (m *MPV) PlayWhenReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.state.pause
}

func (m *MPV) PlaybackState() PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.native()
}

func (m *MPV) SeekTo(position time.Duration) error {
	_, err := m.command(context.Background(), "seek", position.Seconds(), "absolute")
	return err
}

func (m *MPV) CurrentPosition() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return seconds(m.state.position)
}

func (m *MPV) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return seconds(m.state.duration)
}

func (m *MPV) BufferedPercentage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.bufferedPercentage()
}

func (m *MPV) SetPlaybackParameters(params PlaybackParameters) error {
	return m.setProperty(context.Background(), "speed", params.Speed)
}

// Stop unloads the current file; mpv stays running and idle.
func (m *MPV) Stop() error {
	_, err := m.command(context.Background(), "stop")
	return err
}

// SendMessage queues msg; messages are applied in the order they were sent.
func (m *MPV) SendMessage(msg Message) error {
	if m.released.Load() {
		return ErrReleased
	}
	select {
	case m.queue <- queuedMessage{ctx: context.Background(), msg: msg}:
		return nil
	default:
		return errors.New("renderer message queue full")
	}
}

// BlockingSendMessage applies msg after every queued message. Detaching a
// surface returns only once mpv reports its video output unconfigured.
func (m *MPV) BlockingSendMessage(ctx context.Context, msg Message) error {
	if m.released.Load() {
		return ErrReleased
	}

	done := make(chan error, 1)
	select {
	case m.queue <- queuedMessage{ctx: ctx, msg: msg, done: done}:
	case <-m.done:
		return ErrReleased
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-m.done:
		return ErrReleased
	case <-ctx.Done():
		return ctx.Err()
	}

	if surface, ok := msg.Payload.(mo.Option[Surface]); ok && msg.Kind == MsgSetSurface && surface.IsAbsent() {
		return m.waitVideoReleased(ctx)
	}
	return nil
}

func (m *MPV) waitVideoReleased(ctx context.Context) error {
	for {
		var configured bool
		if err := m.getProperty(ctx, "vo-configured", &configured); err != nil {
			return err
		}
		if !configured {
			return nil
		}

		select {
		case <-time.After(detachPollDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *MPV) applyMessage(ctx context.Context, msg Message) error {
	switch msg.Kind {
	case MsgSetSurface:
		surface, ok := msg.Payload.(mo.Option[Surface])
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", msg.Kind, msg.Payload)
		}
		if s, ok := surface.Get(); ok {
			if err := m.setProperty(ctx, "wid", int64(s)); err != nil {
				return err
			}
			return m.setProperty(ctx, "vid", "auto")
		}
		return m.setProperty(ctx, "vid", "no")
	case MsgSetVolume:
		volume, ok := msg.Payload.(float32)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", msg.Kind, msg.Payload)
		}
		return m.setProperty(ctx, "volume", float64(util.Clamp(volume, 0, 1))*100)
	default:
		return fmt.Errorf("unsupported message %s", msg.Kind)
	}
}

// Release quits mpv, killing it when it does not exit in time, and removes the socket.
func (m *MPV) Release() error {
	if !m.released.CompareAndSwap(false, true) {
		return nil
	}
	close(m.done)

	ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
	_, err := m.ipc.call(ctx, "quit")
	cancel()
	if err != nil {
		log.Debugf("quit: %s", err)
	}

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		log.Warn("mpv did not quit in time, killing it")
		_ = killProcess(m.cmd)
	}

	_ = m.ipc.Close()
	m.workers.Wait()

	if err := os.Remove(m.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket: %w", err)
	}
	return nil
}
