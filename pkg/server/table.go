package server

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// SessionTable maps session ids to their sockets. It is owned by one Server.
//
// A GET pins its session for the duration of the call: a socket that closes
// while pinned stays in the table until the GET checks it back in.
type SessionTable struct {
	mu       sync.Mutex
	sessions map[string]*tableEntry

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peak         int

	onInsert func(sid string)
	onRemove func(sid string)

	logger *slog.Logger
}

type tableEntry struct {
	sock   SessionSocket
	pins   int
	closed bool
}

// TableStats contains aggregated session table statistics.
type TableStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// NewSessionTable creates an empty table.
func NewSessionTable(logger *slog.Logger) *SessionTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionTable{
		sessions: make(map[string]*tableEntry),
		logger:   logger.With("component", "session_table"),
	}
}

// Get returns the socket for sid.
func (t *SessionTable) Get(sid string) (SessionSocket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.sock, true
}

// Insert adds a session. It fails with ErrDuplicateSession if sid exists.
func (t *SessionTable) Insert(sid string, sock SessionSocket) error {
	t.mu.Lock()
	if _, ok := t.sessions[sid]; ok {
		t.mu.Unlock()
		return NewSessionError(sid, "insert", ErrDuplicateSession)
	}
	t.sessions[sid] = &tableEntry{sock: sock}
	t.totalCreated.Add(1)
	if n := len(t.sessions); n > t.peak {
		t.peak = n
	}
	onInsert := t.onInsert
	t.mu.Unlock()

	if onInsert != nil {
		onInsert(sid)
	}
	return nil
}

// Remove deletes a session without closing it. It reports whether sid was present.
func (t *SessionTable) Remove(sid string) bool {
	t.mu.Lock()
	_, ok := t.removeLocked(sid)
	onRemove := t.onRemove
	t.mu.Unlock()

	if ok && onRemove != nil {
		onRemove(sid)
	}
	return ok
}

func (t *SessionTable) removeLocked(sid string) (SessionSocket, bool) {
	e, ok := t.sessions[sid]
	if !ok {
		return nil, false
	}
	delete(t.sessions, sid)
	t.totalClosed.Add(1)
	return e.sock, true
}

// DisconnectOne closes the session and removes it.
func (t *SessionTable) DisconnectOne(sid string) error {
	sock, ok := t.Get(sid)
	if !ok {
		return NewSessionError(sid, "disconnect", ErrSessionNotFound)
	}
	err := sock.Close()
	t.Remove(sid)
	if err != nil {
		return NewSessionError(sid, "disconnect", err)
	}
	return nil
}

// DisconnectAll closes and removes every session. The table is always
// emptied; individual close failures are joined into the returned error.
func (t *SessionTable) DisconnectAll() error {
	t.mu.Lock()
	socks := make(map[string]SessionSocket, len(t.sessions))
	for sid, e := range t.sessions {
		socks[sid] = e.sock
	}
	t.sessions = make(map[string]*tableEntry)
	t.totalClosed.Add(uint64(len(socks)))
	onRemove := t.onRemove
	t.mu.Unlock()

	var errs []error
	for sid, sock := range socks {
		if err := sock.Close(); err != nil {
			t.logger.Warn("session close failed", "session_id", sid, "error", err)
			errs = append(errs, NewSessionError(sid, "disconnect", err))
		}
		if onRemove != nil {
			onRemove(sid)
		}
	}
	return errors.Join(errs...)
}

// checkout pins sid for the duration of a GET.
func (t *SessionTable) checkout(sid string) (SessionSocket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[sid]
	if !ok {
		return nil, false
	}
	e.pins++
	return e.sock, true
}

// checkin releases a pin and removes the session if it closed meanwhile
// or reports itself closed now.
func (t *SessionTable) checkin(sid string, sock SessionSocket) {
	t.mu.Lock()
	e, ok := t.sessions[sid]
	if !ok || e.sock != sock {
		t.mu.Unlock()
		return
	}
	e.pins--
	removed := false
	if e.pins <= 0 && (e.closed || sock.Closed()) {
		_, removed = t.removeLocked(sid)
	}
	onRemove := t.onRemove
	t.mu.Unlock()

	if removed && onRemove != nil {
		onRemove(sid)
	}
}

// markClosed is the transition action for a socket entering the closed
// state. Unpinned sessions are removed at once.
func (t *SessionTable) markClosed(sid string, sock SessionSocket) {
	t.mu.Lock()
	e, ok := t.sessions[sid]
	if !ok || (sock != nil && e.sock != sock) {
		t.mu.Unlock()
		return
	}
	removed := false
	if e.pins > 0 {
		e.closed = true
	} else {
		_, removed = t.removeLocked(sid)
	}
	onRemove := t.onRemove
	t.mu.Unlock()

	if removed && onRemove != nil {
		onRemove(sid)
	}
}

// Len returns the number of sessions.
func (t *SessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// IDs returns the session ids in sorted order.
func (t *SessionTable) IDs() []string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.sessions))
	for sid := range t.sessions {
		ids = append(ids, sid)
	}
	t.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Stats returns aggregated statistics.
func (t *SessionTable) Stats() TableStats {
	t.mu.Lock()
	active := len(t.sessions)
	peak := t.peak
	t.mu.Unlock()

	return TableStats{
		Active:       active,
		TotalCreated: t.totalCreated.Load(),
		TotalClosed:  t.totalClosed.Load(),
		Peak:         peak,
	}
}

// SetOnInsert sets the callback run after a session is inserted.
func (t *SessionTable) SetOnInsert(fn func(sid string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onInsert = fn
}

// SetOnRemove sets the callback run after a session is removed.
func (t *SessionTable) SetOnRemove(fn func(sid string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRemove = fn
}
