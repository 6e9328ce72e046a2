// Package server implements the Engine.IO server engine: handshake and
// transport negotiation, per-session request dispatch, response assembly
// and the bridge to application event handlers.
//
// # Architecture
//
// A request flows through four stages:
//
//   - Dispatcher: validates the query and routes by method and sid
//   - Negotiator: creates sessions, sends the Open packet, runs the connect event
//   - SessionSocket: owns a session's queue and transport (see pkg/socket)
//   - Assembler: compresses the body and appends CORS headers
//
// Sessions live in a SessionTable owned by the Server. The table is visible
// to concurrent requests as soon as the handshake inserts a session, before
// the connect handler has decided whether to accept it.
//
// # Status Codes
//
//	200  handshake, poll or post accepted
//	400  malformed query, unknown transport, unknown sid, bad payload, session gone
//	401  connect handler returned ErrConnectionRejected
//	405  method other than GET or POST
//	500  connect handler failed or panicked
//
// # Example Usage
//
//	srv := server.New(nil)
//	srv.OnConnect(func(ctx context.Context, sid string, env *server.Environ) error {
//	    if env.Query.Get("token") == "" {
//	        return server.ErrConnectionRejected
//	    }
//	    return nil
//	})
//	srv.OnMessage(func(ctx context.Context, sid string, data []byte, binary bool) {
//	    _ = srv.Send(sid, data, binary)
//	})
//
//	mux := http.NewServeMux()
//	srv.Attach(mux, "")
//	http.ListenAndServe(":8080", mux)
//
// # Thread Safety
//
// Server methods are safe for concurrent use. Event handlers must be
// registered before the server starts serving requests.
package server
