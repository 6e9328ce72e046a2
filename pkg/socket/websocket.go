package socket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/engineio/pkg/protocol"
)

var probe = []byte("probe")

// serveWebSocket upgrades the request and runs the WebSocket transport until
// the connection ends. A handshaking socket goes straight to StateConnected;
// a polling socket runs the probe exchange first.
func (s *Socket) serveWebSocket(w http.ResponseWriter, r *http.Request) GetResult {
	upgrading := s.State() == StatePollingActive
	if upgrading {
		if err := s.transition(StateUpgradeInProgress); err != nil {
			return getClosed(err)
		}
	}

	conn, err := s.config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote an HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		if upgrading {
			_ = s.transition(StatePollingActive)
		} else {
			s.close(true)
		}
		return GetResult{Outcome: GetTakeover, Err: fmt.Errorf("%w: %v", ErrUpgradeFailed, err)}
	}

	if upgrading {
		if err := s.probe(conn); err != nil {
			s.logger.Warn("websocket probe failed", "error", err)
			_ = s.transition(StatePollingActive)
			conn.Close()
			return GetResult{Outcome: GetTakeover, Err: err}
		}
	}

	if err := s.transition(StateConnected); err != nil {
		conn.Close()
		return GetResult{Outcome: GetTakeover, Err: err}
	}
	s.logger.Debug("websocket transport active", "upgraded", upgrading)

	s.runWebSocket(r.Context(), conn)
	return takeover()
}

// probe runs the client probe: 2probe, 3probe, then 5 once the pending
// poll has been flushed with a Noop.
func (s *Socket) probe(conn *websocket.Conn) error {
	pkt, err := s.readPacket(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	if pkt.Type != protocol.Ping || !bytes.Equal(pkt.Data, probe) {
		return fmt.Errorf("%w: expected ping probe, got %s", ErrUpgradeFailed, pkt.Type)
	}

	pong := protocol.Packet{Type: protocol.Pong, Data: probe}
	if err := conn.WriteMessage(websocket.TextMessage, pong.Encode(false)); err != nil {
		return fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	if err := s.Send(protocol.Packet{Type: protocol.Noop}); err != nil {
		return err
	}

	pkt, err = s.readPacket(conn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	if pkt.Type != protocol.Upgrade {
		return fmt.Errorf("%w: expected upgrade, got %s", ErrUpgradeFailed, pkt.Type)
	}
	return nil
}

// runWebSocket moves queued packets onto conn from a writer goroutine while
// the calling goroutine reads frames. It returns once both have stopped.
func (s *Socket) runWebSocket(ctx context.Context, conn *websocket.Conn) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		s.writeLoop(conn)
	}()

	s.readLoop(ctx, conn)

	s.close(true)
	<-writerDone
	conn.Close()
}

func (s *Socket) writeLoop(conn *websocket.Conn) {
	for {
		packets, err := s.Poll(context.Background())
		if err != nil {
			if !errors.Is(err, ErrSessionClosed) {
				s.logger.Debug("websocket writer stopped", "error", err)
			}
			return
		}
		for _, pkt := range packets {
			messageType := websocket.TextMessage
			if pkt.Binary {
				messageType = websocket.BinaryMessage
			}
			if err := conn.WriteMessage(messageType, pkt.Encode(false)); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		messageType, msg, err := s.readFrame(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		pkt, err := protocol.DecodePacket(msg, messageType == websocket.BinaryMessage)
		if err != nil {
			s.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		if err := s.receive(ctx, pkt); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return
			}
			s.logger.Warn("dropping unexpected packet", "type", pkt.Type, "error", err)
		}
		if s.Closed() {
			return
		}
	}
}

// readFrame reads one frame, bounded by the ping timeout.
func (s *Socket) readFrame(conn *websocket.Conn) (int, []byte, error) {
	conn.SetReadDeadline(time.Now().Add(s.config.PingTimeout))
	return conn.ReadMessage()
}

func (s *Socket) readPacket(conn *websocket.Conn) (protocol.Packet, error) {
	messageType, msg, err := s.readFrame(conn)
	if err != nil {
		return protocol.Packet{}, err
	}
	return protocol.DecodePacket(msg, messageType == websocket.BinaryMessage)
}
