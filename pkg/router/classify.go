package router

import (
	"github.com/el-tor/eltor-app-sub000/pkg/socks"
)

// hiddenSuffix marks a target as a hidden-service name. The comparison is
// ASCII case-insensitive; the bytes forwarded upstream stay untouched.
const hiddenSuffix = ".onion"

// UpstreamPort selects the upstream SOCKS5 port for a target address.
// Domain targets ending in .onion go to the hidden upstream; everything
// else, including all IPv4 and IPv6 targets, goes to the default upstream.
// The router never resolves names itself.
func (c Config) UpstreamPort(target socks.Addr) uint16 {
	if target.Atyp == socks.Domain && hasHiddenSuffix(target.Raw) {
		return c.HiddenUpstreamPort
	}
	return c.DefaultUpstreamPort
}

// hasHiddenSuffix reports whether name ends with hiddenSuffix, comparing
// ASCII letters case-insensitively. Non-ASCII bytes never match.
func hasHiddenSuffix(name []byte) bool {
	if len(name) < len(hiddenSuffix) {
		return false
	}

	tail := name[len(name)-len(hiddenSuffix):]
	for i := 0; i < len(hiddenSuffix); i++ {
		b := tail[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if b != hiddenSuffix[i] {
			return false
		}
	}
	return true
}
