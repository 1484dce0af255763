package webbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Config configures a Bridge.
type Config struct {
	// ReadTimeout bounds each WebSocket read (default: 60s). The client is
	// expected to send at least one frame per interval; browser clients
	// piggyback on storage events or send results.
	ReadTimeout time.Duration

	// WriteTimeout bounds each WebSocket write (default: 10s).
	WriteTimeout time.Duration

	// RequestTimeout bounds one round trip to the browser (default: 5s).
	RequestTimeout time.Duration

	// CheckOrigin validates the upgrade request origin.
	// Default: same-origin only (the gorilla default).
	CheckOrigin func(r *http.Request) bool

	// OnConnect is called after a window completes its hello.
	OnConnect func(w *Window)

	// OnDisconnect is called after a window's connection drops.
	OnDisconnect func(w *Window)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Config)

// WithReadTimeout sets the WebSocket read deadline interval.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReadTimeout = d }
}

// WithWriteTimeout sets the WebSocket write deadline interval.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) { c.WriteTimeout = d }
}

// WithRequestTimeout sets the per-request round-trip deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithCheckOrigin sets the upgrade origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) { c.CheckOrigin = fn }
}

// WithOnConnect sets the window-connected callback.
func WithOnConnect(fn func(w *Window)) Option {
	return func(c *Config) { c.OnConnect = fn }
}

// WithOnDisconnect sets the window-disconnected callback.
func WithOnDisconnect(fn func(w *Window)) Option {
	return func(c *Config) { c.OnDisconnect = fn }
}

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Bridge accepts window connections and tracks them by ID.
type Bridge struct {
	config   Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	windows map[string]*Window
}

// New creates a bridge.
func New(opts ...Option) *Bridge {
	config := Config{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
		Logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Bridge{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		windows: make(map[string]*Window),
	}
}

// Routes returns the chi router serving the bridge WebSocket endpoint at
// GET /ws.
func (b *Bridge) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", b.handleWS)
	return r
}

// ServeHTTP makes the bridge mountable as a plain http.Handler.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Routes().ServeHTTP(w, r)
}

// Window returns the connected window with the given ID.
func (b *Bridge) Window(id string) (*Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	return w, ok
}

// Windows returns the IDs of all connected windows.
func (b *Bridge) Windows() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.windows))
	for id := range b.windows {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.config.Logger.Error("websocket upgrade failed", "error", err)
		return
	}

	win, err := b.handshake(conn)
	if err != nil {
		b.config.Logger.Error("window handshake failed", "error", err)
		conn.Close()
		return
	}

	b.mu.Lock()
	if old, ok := b.windows[win.id]; ok {
		// Same window reconnecting; drop the stale connection.
		go old.close()
	}
	b.windows[win.id] = win
	b.mu.Unlock()

	b.config.Logger.Info("window connected", "window", win.id)
	if b.config.OnConnect != nil {
		b.config.OnConnect(win)
	}

	go win.readLoop()
}

// handshake reads the hello frame and builds the window.
func (b *Bridge) handshake(conn *websocket.Conn) (*Window, error) {
	conn.SetReadDeadline(time.Now().Add(b.config.RequestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var hello message
	if err := json.Unmarshal(data, &hello); err != nil {
		return nil, err
	}
	if hello.Type != typeHello || hello.Window == "" {
		return nil, fmt.Errorf("expected hello frame, got %q", hello.Type)
	}

	return &Window{
		id:             hello.Window,
		conn:           conn,
		logger:         b.config.Logger,
		pending:        make(map[uint64]chan message),
		listeners:      make(map[string][]func(string)),
		done:           make(chan struct{}),
		readTimeout:    b.config.ReadTimeout,
		writeTimeout:   b.config.WriteTimeout,
		requestTimeout: b.config.RequestTimeout,
		onClose:        b.dropWindow,
	}, nil
}

// dropWindow removes a closed window from the registry.
func (b *Bridge) dropWindow(w *Window) {
	b.mu.Lock()
	if b.windows[w.id] == w {
		delete(b.windows, w.id)
	}
	b.mu.Unlock()

	b.config.Logger.Info("window disconnected", "window", w.id)
	if b.config.OnDisconnect != nil {
		b.config.OnDisconnect(w)
	}
}
