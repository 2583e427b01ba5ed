package channel

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cryostatio/cryostat-sub001/pkg/auth"
)

// CloseCode classifies why the socket closed.
type CloseCode int

const (
	// CloseNone means the socket has not closed since the last open.
	CloseNone CloseCode = 0
	// LoggedOut is a normal server close; the backend session ended.
	LoggedOut CloseCode = websocket.CloseNormalClosure
	// ProtocolFailure means the backend rejected the subprotocol credential.
	ProtocolFailure CloseCode = websocket.CloseProtocolError
	// InternalError is a backend failure; the client reconnects.
	InternalError CloseCode = websocket.CloseInternalServerErr
	// Unknown covers every other close and failed dials.
	Unknown CloseCode = -1
)

// String returns the close code name.
func (c CloseCode) String() string {
	switch c {
	case CloseNone:
		return "None"
	case LoggedOut:
		return "LoggedOut"
	case ProtocolFailure:
		return "ProtocolFailure"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CloseCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Phase is the connection phase.
type Phase int

const (
	// Disconnected means no socket is open or being opened.
	Disconnected Phase = iota
	// Connecting means a dial is in flight.
	Connecting
	// Connected means the socket is open.
	Connected
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ConnectionState is the observable socket state.
type ConnectionState struct {
	Ready bool      `json:"ready"`
	Code  CloseCode `json:"closeCode,omitempty"`
	Phase Phase     `json:"phase"`
}

// Subprotocol builds the credential-carrying subprotocol for method. It is
// empty when the method carries no in-band credential.
func Subprotocol(method auth.Method, token string) string {
	if token == "" {
		return ""
	}
	switch method {
	case auth.MethodBearer:
		return "base64url.bearer.authorization.cryostat." + token
	case auth.MethodBasic:
		return "basic.authorization.cryostat." + token
	default:
		return ""
	}
}

// classify maps a read error to a close code.
func classify(err error) CloseCode {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch CloseCode(ce.Code) {
		case LoggedOut, ProtocolFailure, InternalError:
			return CloseCode(ce.Code)
		}
	}
	return Unknown
}

// closeQuietly sends a normal close frame and closes conn.
func closeQuietly(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
