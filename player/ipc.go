package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sampletvinput/tvplay/log"
	"go.uber.org/atomic"
)

const (
	maxRetries     = 3
	retryDelay     = 100 * time.Millisecond
	requestTimeout = 5 * time.Second
	maxLineSize    = 1 << 20
)

// ipcCommand is one newline-delimited request written to mpv.
type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is anything mpv writes back: a reply carries request_id,
// an event carries event.
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	ID        int64           `json:"id"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

// MPVError is an error reply from mpv itself. Retrying it is pointless.
type MPVError struct {
	Command string
	Reason  string
}

func (e *MPVError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Reason)
}

var errConnClosed = errors.New("ipc connection closed")

// ipcConn multiplexes requests and events over one mpv socket connection.
type ipcConn struct {
	conn    net.Conn
	nextID  atomic.Int64
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan ipcMessage
	closed  bool
}

func dialIPC(socketPath string) (*ipcConn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return newIPCConn(conn), nil
}

func newIPCConn(conn net.Conn) *ipcConn {
	return &ipcConn{
		conn:    conn,
		pending: make(map[int64]chan ipcMessage),
	}
}

// call sends command and waits for the reply with the same request_id.
func (c *ipcConn) call(ctx context.Context, command ...any) (json.RawMessage, error) {
	id := c.nextID.Inc()
	reply := make(chan ipcMessage, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errConnClosed
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(ipcCommand{Command: command, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case msg, ok := <-reply:
		if !ok {
			return nil, errConnClosed
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, &MPVError{Command: fmt.Sprint(command[0]), Reason: msg.Error}
		}
		return msg.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readLoop routes replies to their callers and everything else to onEvent
// until the connection is closed.
func (c *ipcConn) readLoop(onEvent func(ipcMessage)) error {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Tracef("skipping ipc line: %s", err)
			continue
		}

		if msg.Event != "" {
			onEvent(msg)
			continue
		}

		c.mu.Lock()
		if reply, ok := c.pending[msg.RequestID]; ok {
			reply <- msg
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

func (c *ipcConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, reply := range c.pending {
		close(reply)
		delete(c.pending, id)
	}
}

func (c *ipcConn) Close() error {
	c.shutdown()
	return c.conn.Close()
}

// command runs an IPC command with a per-attempt timeout, retrying
// transport failures. mpv error replies are returned at once.
func (m *MPV) command(ctx context.Context, command ...any) (json.RawMessage, error) {
	if m.released.Load() {
		return nil, ErrReleased
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		data, err := m.ipc.call(attemptCtx, command...)
		cancel()
		if err == nil {
			return data, nil
		}

		var mpvErr *MPVError
		if errors.As(err, &mpvErr) || errors.Is(err, errConnClosed) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", maxRetries, lastErr)
}

func (m *MPV) setProperty(ctx context.Context, name string, value any) error {
	_, err := m.command(ctx, "set_property", name, value)
	return err
}

func (m *MPV) getProperty(ctx context.Context, name string, into any) error {
	data, err := m.command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("property %s: %w", name, err)
	}
	return nil
}
