// Package router implements the SOCKS5 splitting router that sits between
// local applications and the two overlay proxies of the El Tor app. It
// accepts SOCKS5 CONNECT requests on a loopback port, classifies the target,
// and tunnels the session through either the hidden-service upstream or the
// payment-enabled default upstream.
package router

import (
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Environment variables recognized by FromEnv.
const (
	EnvListenPort          = "SPLIT_LISTEN_PORT"
	EnvHiddenUpstreamPort  = "SPLIT_HIDDEN_PORT"
	EnvDefaultUpstreamPort = "SPLIT_DEFAULT_PORT"
	EnvBindAddress         = "SPLIT_BIND_ADDRESS"
)

// Defaults used when an option is absent or invalid.
const (
	defaultListenPort          = 18049
	defaultHiddenUpstreamPort  = 18050
	defaultDefaultUpstreamPort = 18058
	defaultBindAddress         = "127.0.0.1"
)

// Config holds the router's immutable settings. It is created once at
// startup and shared read-only by every session; a config change is a
// restart.
type Config struct {
	// ListenPort is the port the router listens on. Port 0 is permitted
	// when a Config is built directly (the listener picks an ephemeral
	// port); FromEnv never produces 0.
	ListenPort uint16

	// HiddenUpstreamPort is the loopback SOCKS5 upstream used for
	// hidden-service (.onion) targets.
	HiddenUpstreamPort uint16

	// DefaultUpstreamPort is the loopback SOCKS5 upstream used for every
	// other target.
	DefaultUpstreamPort uint16

	// BindAddr is the interface the listener binds to.
	BindAddr string
}

// FromEnv reads the router configuration from the environment. Options that
// are absent, unparseable, or out of range fall back to their defaults; bad
// configuration never prevents startup.
func FromEnv() Config {
	return Config{
		ListenPort:          envPort(EnvListenPort, defaultListenPort),
		HiddenUpstreamPort:  envPort(EnvHiddenUpstreamPort, defaultHiddenUpstreamPort),
		DefaultUpstreamPort: envPort(EnvDefaultUpstreamPort, defaultDefaultUpstreamPort),
		BindAddr:            envAddr(EnvBindAddress, defaultBindAddress),
	}
}

// envPort reads a port number from the environment, accepting [1, 65535].
func envPort(name string, fallback uint16) uint16 {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return fallback
	}

	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || port == 0 {
		log.Warn().Str("var", name).Str("value", raw).Uint16("default", fallback).
			Msg("Invalid port in environment, using default")
		return fallback
	}
	return uint16(port)
}

// envAddr reads an IP address from the environment.
func envAddr(name, fallback string) string {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return fallback
	}

	if net.ParseIP(raw) == nil {
		log.Warn().Str("var", name).Str("value", raw).Str("default", fallback).
			Msg("Invalid bind address in environment, using default")
		return fallback
	}
	return raw
}
