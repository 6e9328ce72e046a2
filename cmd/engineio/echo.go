package main

import (
	"context"
	"log/slog"

	"github.com/vango-dev/engineio/pkg/server"
)

// registerEcho installs handlers that send each message back to its sender.
func registerEcho(eio *server.Server, logger *slog.Logger) {
	eio.OnConnect(func(ctx context.Context, sid string, env *server.Environ) error {
		logger.Info("client connected", "session_id", sid, "remote_ip", env.RemoteIP)
		return nil
	})
	eio.OnMessage(func(ctx context.Context, sid string, data []byte, binary bool) {
		if err := eio.Send(sid, data, binary); err != nil {
			logger.Warn("echo failed", "session_id", sid, "error", err)
		}
	})
	eio.OnDisconnect(func(ctx context.Context, sid string) {
		logger.Info("client disconnected", "session_id", sid)
	})
}
