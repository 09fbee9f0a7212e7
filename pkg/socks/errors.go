// Package socks implements the SOCKS5 wire subset spoken by the splitting
// router.
package socks

// Error codes used inside the router's protocol layer.
// Uses byte values so codes map cheaply onto SOCKS5 reply bytes.
const (
	ErrNone byte = 0 // Operation completed successfully

	// Client protocol errors (10-19)
	ErrInvalidVersion      byte = 10 // Unsupported SOCKS protocol version
	ErrInvalidGreeting     byte = 11 // Malformed method-negotiation frame
	ErrNoAcceptableMethod  byte = 12 // Client offered no supported method
	ErrUnsupportedCommand  byte = 13 // SOCKS command not implemented
	ErrAddressNotSupported byte = 14 // Address format not supported
	ErrInvalidRequest      byte = 15 // Malformed or truncated request frame

	// Upstream errors (20-29)
	ErrUpstreamRefused      byte = 20 // Upstream not listening or refused
	ErrUpstreamUnreachable  byte = 21 // No route to upstream
	ErrUpstreamAuthRejected byte = 22 // Upstream rejected NoAuth method
	ErrUpstreamProtocol     byte = 23 // Malformed upstream handshake frame

	// Session errors (30-39)
	ErrTimeout       byte = 30 // Deadline exceeded before relaying began
	ErrSessionClosed byte = 31 // Peer closed during handshake
	ErrRouterStopped byte = 32 // Router shut down mid-session
	ErrSaturated     byte = 33 // Session limit reached
)

// ErrToString maps error codes to human-readable messages.
// These messages are only used for logging and debugging.
var ErrToString = map[byte]string{
	ErrNone:                 "no error",
	ErrInvalidVersion:       "invalid SOCKS version",
	ErrInvalidGreeting:      "malformed greeting",
	ErrNoAcceptableMethod:   "no acceptable authentication method",
	ErrUnsupportedCommand:   "unsupported command",
	ErrAddressNotSupported:  "address type not supported",
	ErrInvalidRequest:       "malformed request",
	ErrUpstreamRefused:      "upstream connection refused",
	ErrUpstreamUnreachable:  "upstream unreachable",
	ErrUpstreamAuthRejected: "upstream rejected authentication method",
	ErrUpstreamProtocol:     "malformed upstream handshake",
	ErrTimeout:              "handshake timeout",
	ErrSessionClosed:        "session closed by peer",
	ErrRouterStopped:        "router stopped",
	ErrSaturated:            "too many sessions",
}

// ReplyFor maps an internal error code to the SOCKS5 reply byte sent to the
// client, as defined in RFC 1928.
func ReplyFor(code byte) byte {
	switch code {
	case ErrNone:
		return Succeeded
	case ErrUpstreamRefused:
		return ConnectionRefused
	case ErrUpstreamUnreachable:
		return NetworkUnreachable
	case ErrUpstreamAuthRejected:
		return ConnectionNotAllowed
	case ErrTimeout:
		return TTLExpired
	case ErrUnsupportedCommand:
		return CommandNotSupported
	case ErrAddressNotSupported:
		return AddressTypeNotSupported
	default:
		return GeneralFailure
	}
}

// ErrorReply builds the reply frame sent to a client when a session fails
// before relaying. The bound address is always the zero IPv4 address, since
// no upstream socket exists on the failure path.
func ErrorReply(code byte) []byte {
	return []byte{Version5, ReplyFor(code), 0x00, IPv4, 0, 0, 0, 0, 0, 0}
}
