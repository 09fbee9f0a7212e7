package socks

import (
	"bytes"
	"testing"
)

func TestDecodeAddrIPv4(t *testing.T) {
	data := []byte{IPv4, 1, 2, 3, 4, 0x01, 0xBB}
	addr, consumed, code := DecodeAddr(data)
	if code != ErrNone {
		t.Fatalf("decode failed: %s", ErrToString[code])
	}
	if consumed != len(data) {
		t.Errorf("consumed %d bytes, want %d", consumed, len(data))
	}
	if addr.Atyp != IPv4 || !bytes.Equal(addr.Raw, []byte{1, 2, 3, 4}) || addr.Port != 443 {
		t.Errorf("got %s, want 1.2.3.4:443", addr)
	}
}

func TestDecodeAddrDomain(t *testing.T) {
	name := "abcdefghijklmnop.onion"
	data := append([]byte{Domain, byte(len(name))}, name...)
	data = append(data, 0x00, 0x50)

	addr, consumed, code := DecodeAddr(data)
	if code != ErrNone {
		t.Fatalf("decode failed: %s", ErrToString[code])
	}
	if consumed != len(data) {
		t.Errorf("consumed %d bytes, want %d", consumed, len(data))
	}
	if addr.Atyp != Domain || string(addr.Raw) != name || addr.Port != 80 {
		t.Errorf("got %s, want %s:80", addr, name)
	}
}

func TestDecodeAddrTrailingBytes(t *testing.T) {
	data := []byte{IPv4, 10, 0, 0, 1, 0x00, 0x16, 0xDE, 0xAD}
	addr, consumed, code := DecodeAddr(data)
	if code != ErrNone {
		t.Fatalf("decode failed: %s", ErrToString[code])
	}
	if consumed != 7 {
		t.Errorf("consumed %d bytes, want 7", consumed)
	}
	if addr.Port != 22 {
		t.Errorf("port = %d, want 22", addr.Port)
	}
}

func TestAddrRoundTrip(t *testing.T) {
	longName := bytes.Repeat([]byte{'a'}, MaxDomainLen)

	cases := []struct {
		name string
		addr Addr
	}{
		{"ipv4", Addr{Atyp: IPv4, Raw: []byte{127, 0, 0, 1}, Port: 18049}},
		{"ipv4 port zero", Addr{Atyp: IPv4, Raw: []byte{0, 0, 0, 0}, Port: 0}},
		{"ipv6", Addr{Atyp: IPv6, Raw: bytes.Repeat([]byte{0xFE}, 16), Port: 65535}},
		{"domain", Addr{Atyp: Domain, Raw: []byte("example.onion"), Port: 443}},
		{"domain single byte", Addr{Atyp: Domain, Raw: []byte("x"), Port: 1}},
		{"domain max length", Addr{Atyp: Domain, Raw: longName, Port: 65535}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire := tc.addr.Encode()
			got, consumed, code := DecodeAddr(wire)
			if code != ErrNone {
				t.Fatalf("decode failed: %s", ErrToString[code])
			}
			if consumed != len(wire) {
				t.Errorf("consumed %d bytes, want %d", consumed, len(wire))
			}
			if got.Atyp != tc.addr.Atyp || !bytes.Equal(got.Raw, tc.addr.Raw) || got.Port != tc.addr.Port {
				t.Errorf("round trip mismatch: got %s, want %s", got, tc.addr)
			}
		})
	}
}

func TestDecodeAddrErrors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		code byte
	}{
		{"empty input", nil, ErrAddressNotSupported},
		{"unknown type", []byte{0x05, 1, 2, 3, 4, 0, 80}, ErrAddressNotSupported},
		{"ipv4 truncated", []byte{IPv4, 1, 2, 3}, ErrInvalidRequest},
		{"ipv4 missing port", []byte{IPv4, 1, 2, 3, 4, 0}, ErrInvalidRequest},
		{"ipv6 truncated", []byte{IPv6, 0, 0, 0, 0}, ErrInvalidRequest},
		{"domain missing length", []byte{Domain}, ErrInvalidRequest},
		{"domain zero length", []byte{Domain, 0, 0, 80}, ErrInvalidRequest},
		{"domain truncated", []byte{Domain, 10, 'a', 'b', 'c'}, ErrInvalidRequest},
		{"domain missing port", append([]byte{Domain, 3}, 'a', 'b', 'c'), ErrInvalidRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, code := DecodeAddr(tc.data)
			if code != tc.code {
				t.Errorf("code = %s, want %s", ErrToString[code], ErrToString[tc.code])
			}
		})
	}
}

func TestAddrString(t *testing.T) {
	cases := []struct {
		addr Addr
		want string
	}{
		{Addr{Atyp: IPv4, Raw: []byte{1, 2, 3, 4}, Port: 443}, "1.2.3.4:443"},
		{Addr{Atyp: Domain, Raw: []byte("example.onion"), Port: 80}, "example.onion:80"},
		{Addr{Atyp: IPv6, Raw: append(bytes.Repeat([]byte{0}, 15), 1), Port: 8080}, "[::1]:8080"},
		{Addr{Atyp: 0x09}, "unknown"},
	}

	for _, tc := range cases {
		if got := tc.addr.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
