// Package main implements the headless SOCKS5 splitting router daemon.
// The surrounding El Tor app supervises this process alongside the overlay
// and wallet daemons; configuration comes from the environment, optionally
// overridden by flags.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/el-tor/eltor-app-sub000/pkg/router"
)

// Exit codes.
const (
	Success       = 0 // success
	ErrListenBind = 1 // could not bind the listening socket
)

// init configures logging with zerolog.
// Sets up console output and INFO level logging.
func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// main reads configuration, starts the router, and runs until SIGINT or
// SIGTERM triggers a graceful stop.
func main() {
	listenPort := flag.Uint("listen-port", 0, "listen port (overrides "+router.EnvListenPort+")")
	hiddenPort := flag.Uint("hidden-port", 0, "hidden upstream port (overrides "+router.EnvHiddenUpstreamPort+")")
	defaultPort := flag.Uint("default-port", 0, "default upstream port (overrides "+router.EnvDefaultUpstreamPort+")")
	bindAddr := flag.String("bind", "", "bind address (overrides "+router.EnvBindAddress+")")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := router.FromEnv()
	if *listenPort > 0 && *listenPort <= 65535 {
		cfg.ListenPort = uint16(*listenPort)
	}
	if *hiddenPort > 0 && *hiddenPort <= 65535 {
		cfg.HiddenUpstreamPort = uint16(*hiddenPort)
	}
	if *defaultPort > 0 && *defaultPort <= 65535 {
		cfg.DefaultUpstreamPort = uint16(*defaultPort)
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := router.New(ctx, cfg)
	if err := r.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start router")
		os.Exit(ErrListenBind)
	}

	// Handle SIGINT (CTRL+C) and SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	r.Stop()
	os.Exit(Success)
}
