package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// Event names passed through the bridge.
const (
	EventConnect    = "connect"
	EventMessage    = "message"
	EventDisconnect = "disconnect"
)

// ConnectHandler decides whether a new session is accepted. Returning an
// error wrapping ErrConnectionRejected answers 401; any other error answers 500.
type ConnectHandler func(ctx context.Context, sid string, env *Environ) error

// MessageHandler receives each Message packet from a client.
type MessageHandler func(ctx context.Context, sid string, data []byte, binary bool)

// DisconnectHandler is called once when an accepted session ends.
type DisconnectHandler func(ctx context.Context, sid string)

// eventBridge holds the application handlers and invokes them through a
// single path. Every call returns only once the handler has completed.
type eventBridge struct {
	onConnect    ConnectHandler
	onMessage    MessageHandler
	onDisconnect DisconnectHandler
	logger       *slog.Logger
}

// trigger runs the handler registered for event. It is a no-op when none is.
func (b *eventBridge) trigger(ctx context.Context, event, sid string, args ...any) error {
	var call func() error
	switch event {
	case EventConnect:
		if h := b.onConnect; h != nil {
			env, _ := arg[*Environ](args, 0)
			call = func() error { return h(ctx, sid, env) }
		}
	case EventMessage:
		if h := b.onMessage; h != nil {
			data, _ := arg[[]byte](args, 0)
			binary, _ := arg[bool](args, 1)
			call = func() error { h(ctx, sid, data, binary); return nil }
		}
	case EventDisconnect:
		if h := b.onDisconnect; h != nil {
			call = func() error { h(ctx, sid); return nil }
		}
	}
	if call == nil {
		return nil
	}
	return b.invoke(event, sid, call)
}

func (b *eventBridge) invoke(event, sid string, call func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = NewHandlerError(sid, event, r, debug.Stack())
		}
		if err != nil {
			b.logger.Debug("event handler failed",
				"event", event, "session_id", sid,
				"duration", time.Since(start), "error", err)
			return
		}
		b.logger.Debug("event handled",
			"event", event, "session_id", sid,
			"duration", time.Since(start))
	}()
	return call()
}

func arg[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}
