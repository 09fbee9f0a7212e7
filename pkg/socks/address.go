// Package socks implements the SOCKS5 wire subset spoken by the splitting
// router.
package socks

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Addr is a SOCKS5 target address: one of IPv4, IPv6, or a domain name.
// Raw holds the address bytes exactly as they appeared on the wire (4 bytes
// for IPv4, 16 for IPv6, 1..255 opaque bytes for a domain). The bytes are
// never normalized; whatever the client sent is what gets forwarded.
type Addr struct {
	Atyp byte   // Address type (IPv4, Domain, IPv6)
	Raw  []byte // Address bytes, unmodified
	Port uint16 // Port number
}

// String formats the address as host:port for logging.
func (a Addr) String() string {
	switch a.Atyp {
	case IPv4:
		return fmt.Sprintf("%s:%d", net.IP(a.Raw).String(), a.Port)
	case Domain:
		return fmt.Sprintf("%s:%d", string(a.Raw), a.Port)
	case IPv6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Raw).String(), a.Port)
	default:
		return "unknown"
	}
}

// DecodeAddr parses a SOCKS5 address from data. The format is:
//
//	+------+----------+----------+
//	| ATYP | DST.ADDR | DST.PORT |
//	+------+----------+----------+
//	|  1   | Variable |    2     |
//
// Returns the parsed address, the number of bytes consumed including the
// ATYP byte, and an error code. An empty input or unknown address type
// yields ErrAddressNotSupported; a frame shorter than its declared form,
// including a zero-length domain, yields ErrInvalidRequest.
func DecodeAddr(data []byte) (Addr, int, byte) {
	if len(data) == 0 {
		return Addr{}, 0, ErrAddressNotSupported
	}

	atyp := data[0]
	cursor := 1
	var raw []byte

	switch atyp {
	case IPv4:
		if len(data) < cursor+4+2 { // 4 bytes IPv4 + 2 bytes port
			return Addr{}, 0, ErrInvalidRequest
		}
		raw = data[cursor : cursor+4]
		cursor += 4

	case IPv6:
		if len(data) < cursor+16+2 { // 16 bytes IPv6 + 2 bytes port
			return Addr{}, 0, ErrInvalidRequest
		}
		raw = data[cursor : cursor+16]
		cursor += 16

	case Domain:
		if len(data) < cursor+1 { // Need length byte
			return Addr{}, 0, ErrInvalidRequest
		}
		domainLen := int(data[cursor])
		cursor++
		if domainLen == 0 {
			return Addr{}, 0, ErrInvalidRequest
		}
		if len(data) < cursor+domainLen+2 { // +2 for port
			return Addr{}, 0, ErrInvalidRequest
		}
		raw = data[cursor : cursor+domainLen]
		cursor += domainLen

	default:
		return Addr{}, 0, ErrAddressNotSupported
	}

	port := binary.BigEndian.Uint16(data[cursor : cursor+2])
	cursor += 2

	return Addr{Atyp: atyp, Raw: raw, Port: port}, cursor, ErrNone
}

// Encode emits the canonical wire form of the address, the inverse of
// DecodeAddr. Used when fabricating reply frames.
func (a Addr) Encode() []byte {
	size := 1 + len(a.Raw) + 2
	if a.Atyp == Domain {
		size++
	}

	out := make([]byte, 0, size)
	out = append(out, a.Atyp)
	if a.Atyp == Domain {
		out = append(out, byte(len(a.Raw)))
	}
	out = append(out, a.Raw...)
	out = binary.BigEndian.AppendUint16(out, a.Port)
	return out
}
