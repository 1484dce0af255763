package webbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-sdk/pkg/storage"
)

// ErrWindowClosed is returned for requests against a window whose WebSocket
// has gone away.
var ErrWindowClosed = errors.New("webbridge: window closed")

// Window is one connected browser window. Requests are correlated with
// responses by ID; storage events fan out to listeners per area.
type Window struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu        sync.Mutex
	pending   map[uint64]chan message
	listeners map[string][]func(key string)
	closed    bool

	done chan struct{}

	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration

	onClose func(w *Window)
}

// ID returns the window identifier announced in the hello frame.
func (w *Window) ID() string { return w.id }

// Slots returns the window's named storage area as a SlotStore.
// Area is AreaLocal or AreaSession.
func (w *Window) Slots(area string) storage.SlotStore {
	return &windowSlots{window: w, area: area}
}

// readLoop dispatches client frames until the connection drops.
func (w *Window) readLoop() {
	defer w.close()

	for {
		w.conn.SetReadDeadline(time.Now().Add(w.readTimeout))
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				w.logger.Error("read error", "window", w.id, "error", err)
			}
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Error("frame decode error", "window", w.id, "error", err)
			continue
		}

		switch msg.Type {
		case typeResult:
			w.deliverResult(msg)
		case typeEvent:
			w.deliverEvent(msg)
		default:
			w.logger.Warn("unknown frame type", "window", w.id, "type", msg.Type)
		}
	}
}

// deliverResult hands a response to the waiting request, if it still waits.
func (w *Window) deliverResult(msg message) {
	w.mu.Lock()
	ch, ok := w.pending[msg.ID]
	if ok {
		delete(w.pending, msg.ID)
	}
	w.mu.Unlock()

	if ok {
		ch <- msg
	}
}

// deliverEvent fans a forwarded storage event out to the area's listeners.
func (w *Window) deliverEvent(msg message) {
	w.mu.Lock()
	listeners := append(([]func(string))(nil), w.listeners[msg.Area]...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(msg.Key)
	}
}

// request sends msg and waits for the matching result.
func (w *Window) request(msg message) (message, error) {
	msg.ID = w.nextID.Add(1)
	ch := make(chan message, 1)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return message{}, ErrWindowClosed
	}
	w.pending[msg.ID] = ch
	w.mu.Unlock()

	if err := w.write(msg); err != nil {
		w.mu.Lock()
		delete(w.pending, msg.ID)
		w.mu.Unlock()
		return message{}, err
	}

	select {
	case res := <-ch:
		if res.Error != "" {
			return message{}, fmt.Errorf("webbridge: %s %s/%s: %s",
				msg.Type, msg.Area, msg.Key, res.Error)
		}
		return res, nil
	case <-time.After(w.requestTimeout):
		w.mu.Lock()
		delete(w.pending, msg.ID)
		w.mu.Unlock()
		return message{}, fmt.Errorf("webbridge: %s %s/%s: request timed out",
			msg.Type, msg.Area, msg.Key)
	case <-w.done:
		return message{}, ErrWindowClosed
	}
}

func (w *Window) write(msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// close tears the window down, waking every pending request.
func (w *Window) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	pending := w.pending
	w.pending = make(map[uint64]chan message)
	w.mu.Unlock()

	close(w.done)
	for _, ch := range pending {
		ch <- message{Error: ErrWindowClosed.Error()}
	}
	w.conn.Close()

	if w.onClose != nil {
		w.onClose(w)
	}
}

// windowSlots adapts one window area to storage.SlotStore.
type windowSlots struct {
	window *Window
	area   string
}

func (s *windowSlots) GetItem(key string) (string, bool, error) {
	res, err := s.window.request(message{Type: typeGet, Area: s.area, Key: key})
	if err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (s *windowSlots) SetItem(key, value string) error {
	_, err := s.window.request(message{Type: typeSet, Area: s.area, Key: key, Value: value})
	return err
}

func (s *windowSlots) RemoveItem(key string) error {
	_, err := s.window.request(message{Type: typeRemove, Area: s.area, Key: key})
	return err
}

// Events registers fn for forwarded storage events on this area.
// Listeners live as long as the window.
func (s *windowSlots) Events(fn func(key string)) error {
	s.window.mu.Lock()
	defer s.window.mu.Unlock()
	if s.window.closed {
		return ErrWindowClosed
	}
	s.window.listeners[s.area] = append(s.window.listeners[s.area], fn)
	return nil
}
