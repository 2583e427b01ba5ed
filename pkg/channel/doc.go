// Package channel implements the push-notification channel: a WebSocket
// client that connects while a backend session is being created,
// authenticates through its subprotocol, reconnects on a fixed tick and
// turns inbound frames into notifications.
//
// A Channel watches five inputs: the notifications URL, the gateway's token
// version, the auth method, the session state and a periodic tick. It acts
// only when that combination differs from the one it last acted on and the
// session is CreatingSession. At most one socket is live; opening a new one
// closes the previous one first.
//
//	ch := channel.New(resolver, gateway, state, notes,
//	    channel.WithReconnectInterval(5*time.Second),
//	)
//	go ch.Run(ctx)
//
// Inbound frames are published on a Bus keyed by category and rendered into
// the notification store through a static category table. Categories the
// table does not know still produce a generic notification.
//
// # Close codes
//
//	1000  LoggedOut        info "Logout success"          -> NoSession
//	1002  ProtocolFailure  danger "Authentication failed" -> NoSession
//	1011  InternalError    danger "Internal server error" -> CreatingSession
//	else  Unknown          danger "Connection failure"    -> CreatingSession
//
// Sockets the client closes itself (a newer connection, logout, shutdown)
// close silently.
package channel
