// Package main implements the interactive operator console for the SOCKS5
// splitting router. It is a development and debugging companion to the
// headless splitterd daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertbit/grumble"
	"github.com/jedib0t/go-pretty/table"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/el-tor/eltor-app-sub000/pkg/router"
)

// CLI banner.
const banner = `
            _ _ _   _
  ___ _ __ | (_) |_| |_ ___ _ __
 / __| '_ \| | | __| __/ _ \ '__|
 \__ \ |_) | | | |_| ||  __/ |
 |___/ .__/|_|_|\__|\__\___|_|
     |_|

   SOCKS5 splitting router console
   -------------------------------

`

// running is the router started from this console, if any.
var running *router.Router

// AddCommands registers all CLI commands with the application.
func AddCommands(app *grumble.App) {
	// Command to start the router
	app.AddCommand(&grumble.Command{
		Name: "start",
		Help: "start the splitting router",
		Flags: func(f *grumble.Flags) {
			f.Uint("l", "listen-port", 0, "listen port (0 keeps the environment value)")
			f.Uint("o", "hidden-port", 0, "hidden upstream port (0 keeps the environment value)")
			f.Uint("d", "default-port", 0, "default upstream port (0 keeps the environment value)")
			f.String("b", "bind", "", "bind address (empty keeps the environment value)")
		},
		Run: func(c *grumble.Context) error {
			if running != nil {
				log.Warn().Msg("Router already running")
				return nil
			}

			cfg := router.FromEnv()
			if p := c.Flags.Uint("listen-port"); p > 0 && p <= 65535 {
				cfg.ListenPort = uint16(p)
			}
			if p := c.Flags.Uint("hidden-port"); p > 0 && p <= 65535 {
				cfg.HiddenUpstreamPort = uint16(p)
			}
			if p := c.Flags.Uint("default-port"); p > 0 && p <= 65535 {
				cfg.DefaultUpstreamPort = uint16(p)
			}
			if b := c.Flags.String("bind"); b != "" {
				cfg.BindAddr = b
			}

			r := router.New(context.Background(), cfg)
			if err := r.Start(); err != nil {
				log.Error().Err(err).Msg("Failed to start router")
				return nil
			}
			running = r
			return nil
		},
	})
	// Command to stop the router
	app.AddCommand(&grumble.Command{
		Name: "stop",
		Help: "stop the running router",
		Run: func(c *grumble.Context) error {
			if running == nil {
				log.Warn().Msg("No router running")
				return nil
			}
			running.Stop()
			running = nil
			return nil
		},
	})
	// Command to show router status
	app.AddCommand(&grumble.Command{
		Name: "status",
		Help: "show router configuration and state",
		Run: func(c *grumble.Context) error {
			cfg := router.FromEnv()
			state := "stopped"
			listen := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ListenPort)
			sessions := 0
			if running != nil {
				cfg = running.Config()
				state = "running"
				listen = running.Addr().String()
				sessions = len(running.Sessions())
			}

			c.App.Println("state:            ", state)
			c.App.Println("listen:           ", listen)
			c.App.Println("hidden upstream:  ", fmt.Sprintf("127.0.0.1:%d", cfg.HiddenUpstreamPort))
			c.App.Println("default upstream: ", fmt.Sprintf("127.0.0.1:%d", cfg.DefaultUpstreamPort))
			c.App.Println("sessions:         ", sessions)
			return nil
		},
	})
	// Command to list live sessions
	app.AddCommand(&grumble.Command{
		Name:    "sessions",
		Aliases: []string{"ls"},
		Help:    "list live sessions",
		Run: func(c *grumble.Context) error {
			if running == nil {
				log.Warn().Msg("No router running")
				return nil
			}

			infos := running.Sessions()
			if len(infos) == 0 {
				log.Info().Msg("No live sessions")
				return nil
			}

			c.App.Println(RenderSessionTable(infos))
			return nil
		},
	})
	// Command to change the log level
	app.AddCommand(&grumble.Command{
		Name: "loglevel",
		Help: "set the global log level",
		Args: func(a *grumble.Args) {
			a.String("level", "one of: trace, debug, info, warn, error")
		},
		Run: func(c *grumble.Context) error {
			level, err := zerolog.ParseLevel(c.Args.String("level"))
			if err != nil {
				log.Error().Err(err).Msg("Unknown log level")
				return nil
			}
			zerolog.SetGlobalLevel(level)
			log.Info().Str("level", level.String()).Msg("Log level changed")
			return nil
		},
	})
}

// RenderSessionTable formats live-session snapshots into a table.
func RenderSessionTable(infos []router.SessionInfo) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		"Session ID",
		"Peer",
		"Target",
		"Upstream",
		"State",
		"Age",
		"Bytes up",
		"Bytes down",
	})

	for _, info := range infos {
		upstream := ""
		if info.Upstream != 0 {
			upstream = fmt.Sprintf("127.0.0.1:%d", info.Upstream)
		}
		t.AppendRow(table.Row{
			info.ID.String(),
			info.Peer,
			info.Target,
			upstream,
			info.State,
			time.Since(info.StartedAt).Round(time.Second).String(),
			info.BytesUp,
			info.BytesDown,
		})
	}

	return t.Render()
}

// main is the entry point for the console.
func main() {
	configureLogging()

	app := setupCLI()
	AddCommands(app)

	if err := app.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

// configureLogging sets up zerolog with appropriate formatting and level.
func configureLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	})

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// setupCLI initializes the command-line interface.
func setupCLI() *grumble.App {
	// Determine history file location
	var histFile string
	home, err := os.UserHomeDir()
	if err != nil {
		histFile = ".splitter" // current working directory
	} else {
		histFile = filepath.Join(home, ".splitter")
	}

	app := grumble.New(&grumble.Config{
		Name:        "splitter",
		HistoryFile: histFile,
	})

	app.SetPrintASCIILogo(func(a *grumble.App) {
		fmt.Print(banner)
	})

	return app
}
