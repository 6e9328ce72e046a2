package socket

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/engineio/pkg/protocol"
)

// Handler receives application-level callbacks from a socket.
type Handler interface {
	// HandleMessage is called for every Message packet received.
	HandleMessage(ctx context.Context, sid string, data []byte, binary bool)

	// HandleClosed is called once when the socket enters StateClosed.
	// from is the state the socket was in before closing.
	HandleClosed(sid string, from State)
}

// Config holds the per-socket settings supplied by the server.
type Config struct {
	// PingTimeout bounds how long a poll or a WebSocket read may wait.
	// Default: 60 seconds.
	PingTimeout time.Duration

	// MaxHTTPBufferSize is the largest POST body accepted.
	// Default: 100MB.
	MaxHTTPBufferSize int64

	// AllowUpgrades permits polling sessions to move to WebSocket.
	AllowUpgrades bool

	// Upgrader performs the WebSocket handshake.
	// Default: a zero websocket.Upgrader.
	Upgrader *websocket.Upgrader

	// Logger is the parent logger.
	// Default: slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.PingTimeout <= 0 {
		c.PingTimeout = 60 * time.Second
	}
	if c.MaxHTTPBufferSize <= 0 {
		c.MaxHTTPBufferSize = 100_000_000
	}
	if c.Upgrader == nil {
		c.Upgrader = &websocket.Upgrader{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Socket is the default session socket. It owns the outbound packet queue
// and serializes all access to the session's lifecycle state.
type Socket struct {
	id      string
	config  Config
	handler Handler
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	queue *queue.Queue

	// notify wakes a suspended Poll when a packet is queued.
	notify chan struct{}

	// done is closed when the socket enters StateClosed.
	done chan struct{}
}

// New creates a socket in StateHandshaking.
func New(sid string, config Config, handler Handler) *Socket {
	config = config.withDefaults()
	return &Socket{
		id:      sid,
		config:  config,
		handler: handler,
		logger:  config.Logger.With("session_id", sid),
		state:   StateHandshaking,
		queue:   queue.New(),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// ID returns the session id.
func (s *Socket) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Closed reports whether the socket has entered StateClosed.
func (s *Socket) Closed() bool {
	return s.State() == StateClosed
}

// Connect marks a handshaking socket as served by polling.
func (s *Socket) Connect() error {
	return s.transition(StatePollingActive)
}

func (s *Socket) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Socket) transitionLocked(to State) error {
	if !s.state.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.logger.Debug("socket state change", "from", s.state, "to", to)
	s.state = to
	return nil
}

// Send queues a packet for delivery on the active transport.
func (s *Socket) Send(pkt protocol.Packet) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.queue.Add(pkt)
	s.mu.Unlock()

	s.signal()
	return nil
}

func (s *Socket) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Poll returns every queued packet, waiting for at least one. It fails with
// ErrSessionClosed once the socket is closed and the queue drained, with
// ErrPollTimeout after the ping timeout, or with the context error.
func (s *Socket) Poll(ctx context.Context) ([]protocol.Packet, error) {
	timer := time.NewTimer(s.config.PingTimeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if n := s.queue.Length(); n > 0 {
			packets := make([]protocol.Packet, 0, n)
			for s.queue.Length() > 0 {
				packets = append(packets, s.queue.Remove().(protocol.Packet))
			}
			s.mu.Unlock()
			return packets, nil
		}
		closed := s.state == StateClosed
		s.mu.Unlock()

		if closed {
			return nil, ErrSessionClosed
		}

		select {
		case <-s.notify:
		case <-s.done:
		case <-timer.C:
			return nil, ErrPollTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close closes the socket gracefully, queueing a Close packet for the client.
func (s *Socket) Close() error {
	s.close(false)
	return nil
}

// close enters StateClosed. abort skips the Close packet, used when the
// client initiated the close or the transport already failed.
func (s *Socket) close(abort bool) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	from := s.state
	if !abort {
		s.queue.Add(protocol.Packet{Type: protocol.Close})
	}
	s.state = StateClosed
	close(s.done)
	s.mu.Unlock()

	s.signal()
	s.logger.Debug("socket closed", "from", from, "abort", abort)

	if s.handler != nil {
		s.handler.HandleClosed(s.id, from)
	}
}

// HandleGet serves a GET for this session: a WebSocket upgrade when the
// request asks for one and the state permits it, a poll otherwise.
func (s *Socket) HandleGet(ctx context.Context, w http.ResponseWriter, r *http.Request) GetResult {
	if isWebSocketRequest(r) {
		if !s.canServeWebSocket() {
			s.logger.Warn("websocket request refused", "state", s.State())
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return GetResult{Outcome: GetTakeover, Err: ErrUpgradeFailed}
		}
		return s.serveWebSocket(w, r)
	}

	switch s.State() {
	case StateUpgradeInProgress, StateConnected:
		// Polling ends once a WebSocket owns the session.
		return delivered([]protocol.Packet{{Type: protocol.Noop}})
	}

	packets, err := s.Poll(ctx)
	if err != nil {
		s.close(true)
		return getClosed(err)
	}
	return delivered(packets)
}

func (s *Socket) canServeWebSocket() bool {
	switch s.State() {
	case StateHandshaking:
		return true
	case StatePollingActive:
		return s.config.AllowUpgrades
	default:
		return false
	}
}

// HandlePost receives the packets carried by a POST body.
func (s *Socket) HandlePost(ctx context.Context, r *http.Request) PostResult {
	if s.Closed() {
		return PostResult{Outcome: PostSessionClosed, Err: ErrSessionClosed}
	}

	limit := s.config.MaxHTTPBufferSize
	if r.ContentLength > limit {
		return malformed(ErrContentTooLong)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return malformed(fmt.Errorf("socket: read body: %w", err))
	}
	if int64(len(body)) > limit {
		return malformed(ErrContentTooLong)
	}

	packets, err := protocol.DecodePayload(body)
	if err != nil {
		return malformed(err)
	}
	for _, pkt := range packets {
		if err := s.receive(ctx, pkt); err != nil {
			return malformed(err)
		}
	}
	return PostResult{Outcome: PostDelivered}
}

// receive applies one inbound packet.
func (s *Socket) receive(ctx context.Context, pkt protocol.Packet) error {
	switch pkt.Type {
	case protocol.Ping:
		return s.Send(protocol.Packet{Type: protocol.Pong, Data: pkt.Data})
	case protocol.Message:
		if s.handler != nil {
			s.handler.HandleMessage(ctx, s.id, pkt.Data, pkt.Binary)
		}
		return nil
	case protocol.Upgrade:
		return s.Send(protocol.Packet{Type: protocol.Noop})
	case protocol.Close:
		s.close(true)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedPacket, pkt.Type)
	}
}

func isWebSocketRequest(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}
	return false
}
