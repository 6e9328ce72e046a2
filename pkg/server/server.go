package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/engineio/pkg/protocol"
	"github.com/vango-dev/engineio/pkg/socket"
)

// Server is the Engine.IO server. It implements http.Handler.
type Server struct {
	config *Config
	table  *SessionTable
	events eventBridge

	// Trusted proxy matcher for forwarded headers
	trustedProxies *proxyMatcher

	// WebSocket upgrader shared by all sockets
	upgrader websocket.Upgrader

	// accepted holds sids whose connect handler succeeded; only those
	// get a disconnect event.
	acceptedMu sync.Mutex
	accepted   map[string]struct{}

	closed atomic.Bool
	logger *slog.Logger
}

// Mux is satisfied by http.ServeMux, chi.Router and most other routers.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// New creates a new Server. A nil config uses DefaultConfig.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
	}
	config.withDefaults()

	logger := config.Logger.With("component", "engineio")
	if err := config.ValidateConfig(); err != nil {
		logger.Error("config validation failed", "error", err)
	}
	config.CompressionMethods = knownCompressionMethods(config.CompressionMethods, logger)

	s := &Server{
		config:         config,
		table:          NewSessionTable(logger),
		trustedProxies: newProxyMatcher(config.TrustedProxies, logger),
		accepted:       make(map[string]struct{}),
		logger:         logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.checkOrigin,
	}
	s.events.logger = logger
	return s
}

// OnConnect registers the connect handler.
func (s *Server) OnConnect(h ConnectHandler) {
	s.events.onConnect = h
}

// OnMessage registers the message handler.
func (s *Server) OnMessage(h MessageHandler) {
	s.events.onMessage = h
}

// OnDisconnect registers the disconnect handler.
func (s *Server) OnDisconnect(h DisconnectHandler) {
	s.events.onDisconnect = h
}

// Config returns the effective configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Sessions returns the session table.
func (s *Server) Sessions() *SessionTable {
	return s.table
}

// Stats returns session table statistics.
func (s *Server) Stats() TableStats {
	return s.table.Stats()
}

// Attach registers the server on mux at path. An empty path uses
// Config.Path. The path is normalized to start and end with "/".
func (s *Server) Attach(mux Mux, path string) {
	if path == "" {
		path = s.config.Path
	}
	path = "/" + strings.Trim(path, "/") + "/"
	if path == "//" {
		path = "/"
	}
	mux.Handle(path, s)
	s.logger.Info("engine.io attached", "path", path)
}

// ServeHTTP implements http.Handler: translate, dispatch, finalize, write.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	env := newEnviron(w, r, s.trustedProxies)
	res := s.finalize(s.handle(r.Context(), env), env)
	if err := writeResponse(w, res); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}

// Send queues a Message packet for sid.
func (s *Server) Send(sid string, data []byte, binary bool) error {
	sock, ok := s.table.Get(sid)
	if !ok {
		return NewSessionError(sid, "send", ErrSessionNotFound)
	}
	if err := sock.Send(protocol.NewMessage(data, binary)); err != nil {
		return NewSessionError(sid, "send", err)
	}
	return nil
}

// SendJSON encodes v as JSON and queues it as a text message.
func (s *Server) SendJSON(sid string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return NewSessionError(sid, "send", fmt.Errorf("encode json: %w", err))
	}
	return s.Send(sid, data, false)
}

// Disconnect closes one session and removes it from the table.
func (s *Server) Disconnect(sid string) error {
	return s.table.DisconnectOne(sid)
}

// DisconnectAll closes every session.
func (s *Server) DisconnectAll() error {
	return s.table.DisconnectAll()
}

// Shutdown stops accepting handshakes and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}
	s.logger.Info("engine.io shutting down", "active_sessions", s.table.Len())

	done := make(chan error, 1)
	go func() { done <- s.table.DisconnectAll() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// knownCompressionMethods drops methods without a compressor.
func knownCompressionMethods(methods []string, logger *slog.Logger) []string {
	return slices.DeleteFunc(methods, func(m string) bool {
		if _, ok := compressors[m]; ok {
			return false
		}
		logger.Warn("ignoring unknown compression method", "method", m)
		return true
	})
}

// newSID returns 32 lowercase hex characters from a random UUID.
func newSID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

func (s *Server) socketConfig() socket.Config {
	return socket.Config{
		PingTimeout:       s.config.PingTimeout,
		MaxHTTPBufferSize: s.config.MaxHTTPBufferSize,
		AllowUpgrades:     s.config.AllowUpgrades,
		Upgrader:          &s.upgrader,
		Logger:            s.logger,
	}
}

func (s *Server) markAccepted(sid string) {
	s.acceptedMu.Lock()
	s.accepted[sid] = struct{}{}
	s.acceptedMu.Unlock()
}

func (s *Server) takeAccepted(sid string) bool {
	s.acceptedMu.Lock()
	defer s.acceptedMu.Unlock()
	_, ok := s.accepted[sid]
	delete(s.accepted, sid)
	return ok
}

// socketEvents adapts the server to socket.Handler.
type socketEvents struct {
	s *Server
}

func (e socketEvents) HandleMessage(ctx context.Context, sid string, data []byte, binary bool) {
	_ = e.s.events.trigger(ctx, EventMessage, sid, data, binary)
}

func (e socketEvents) HandleClosed(sid string, from socket.State) {
	e.s.table.markClosed(sid, nil)
	e.s.logger.Debug("session closed", "session_id", sid, "from", from)
	if !e.s.takeAccepted(sid) {
		return
	}
	if err := e.s.events.trigger(context.Background(), EventDisconnect, sid); err != nil {
		e.s.logger.Error("disconnect handler failed", "session_id", sid, "error", err)
	}
}
