// Package main is the entry point for the agentcam CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/vinayprograms/agentcam/internal/config"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/redact"
	"github.com/vinayprograms/agentcam/internal/scanner"
	"github.com/vinayprograms/agentcam/internal/server"
	"github.com/vinayprograms/agentcam/internal/telemetry"
	"github.com/vinayprograms/agentcam/internal/tui"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0"

type appContext struct {
	cfg    *config.Config
	logger *logging.Logger
}

type cli struct {
	Config string `help:"Config file path (default: ./agentcam.toml)." short:"c" type:"path"`
	Debug  bool   `help:"Enable debug logging."`

	Serve    serveCmd    `cmd:"" help:"Run the web dashboard."`
	Watch    watchCmd    `cmd:"" help:"Watch a session live in the terminal."`
	Replay   replayCmd   `cmd:"" help:"Replay a finished session in the terminal."`
	Sessions sessionsCmd `cmd:"" help:"List discovered sessions."`
	Version  versionCmd  `cmd:"" help:"Show version."`
}

type serveCmd struct {
	Host      string `help:"Bind address."`
	Port      int    `help:"Bind port."`
	Public    bool   `help:"Redact secrets and paths for screen sharing."`
	NoBrowser bool   `help:"Do not open the dashboard in a browser."`
}

func (s *serveCmd) Run(app *appContext) error {
	cfg := app.cfg
	if s.Host != "" {
		cfg.Server.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.Public {
		cfg.Server.Public = true
	}
	if s.NoBrowser {
		cfg.Server.OpenBrowser = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	srv := server.New(
		cfg.Server,
		newScanner(cfg),
		parser.NewCache(),
		redact.New(cfg.Server.Public),
		app.logger,
		tel,
		connectPublisher(app),
	)
	return srv.Run(ctx)
}

type watchCmd struct {
	Session string `arg:"" optional:"" help:"Transcript path or session ID (default: the most recent active session)."`
}

func (w *watchCmd) Run(app *appContext) error {
	path, err := resolveSession(app.cfg, w.Session, true)
	if err != nil {
		return err
	}
	return tui.Run(tui.Options{
		Path:      path,
		Live:      true,
		Config:    app.cfg,
		Logger:    app.logger,
		Publisher: connectPublisher(app),
	})
}

type replayCmd struct {
	Session string  `arg:"" help:"Transcript path or session ID."`
	Speed   float64 `help:"Playback speed multiplier." default:"0"`
}

func (r *replayCmd) Run(app *appContext) error {
	path, err := resolveSession(app.cfg, r.Session, false)
	if err != nil {
		return err
	}
	return tui.Run(tui.Options{
		Path:      path,
		Speed:     r.Speed,
		Config:    app.cfg,
		Logger:    app.logger,
		Publisher: connectPublisher(app),
	})
}

type sessionsCmd struct {
	Active bool `help:"Only show active sessions."`
}

func (l *sessionsCmd) Run(app *appContext) error {
	summaries := newScanner(app.cfg).Scan()
	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}
	for _, sum := range summaries {
		if l.Active && !sum.Active {
			continue
		}
		marker := " "
		if sum.Active {
			marker = "●"
		}
		fmt.Printf("%s %-7s %-20s %-30s %s\n",
			marker, sum.Source, sum.ProjectName, sum.ID,
			sum.ModTime.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

type versionCmd struct{}

func (v *versionCmd) Run(app *appContext) error {
	fmt.Printf("agentcam version %s\n", version)
	return nil
}

func newScanner(cfg *config.Config) *scanner.Scanner {
	home, _ := os.UserHomeDir()
	return scanner.New(home, cfg.Scanner.Paths, cfg.ActiveWindow())
}

// connectPublisher wires the optional NATS event feed. Failures keep
// the tool usable; the feed is an add-on.
func connectPublisher(app *appContext) notify.Publisher {
	if app.cfg.Notify.NATSURL == "" {
		return nil
	}
	pub, err := notify.ConnectNATS(app.cfg.Notify.NATSURL, app.logger)
	if err != nil {
		app.logger.Warn("NATS connect failed, events will not be published", map[string]interface{}{
			"url":   app.cfg.Notify.NATSURL,
			"error": err,
		})
		return nil
	}
	return pub
}

// resolveSession maps a path or session ID to a transcript file. An
// empty argument picks the most recent session, preferring active ones
// when live is requested.
func resolveSession(cfg *config.Config, arg string, live bool) (string, error) {
	scan := newScanner(cfg)
	if arg != "" {
		sum, ok := scan.Find(arg)
		if !ok {
			return "", fmt.Errorf("session not found: %s", arg)
		}
		return sum.FilePath, nil
	}

	summaries := scan.Scan()
	if len(summaries) == 0 {
		return "", fmt.Errorf("no sessions found")
	}
	if live {
		for _, sum := range summaries {
			if sum.Active {
				return sum.FilePath, nil
			}
		}
	}
	return summaries[0].FilePath, nil
}

func loadConfig(path string, logger *logging.Logger) *config.Config {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logger.Warn("config load failed, using defaults", map[string]interface{}{
				"path":  path,
				"error": err,
			})
			return config.New()
		}
		return cfg
	}
	if cfg, err := config.LoadDefault(); err == nil {
		return cfg
	}
	return config.New()
}

func main() {
	// Pick up AGENTCAM_* and telemetry credentials from .env if present.
	_ = godotenv.Load()

	var args cli
	kctx := kong.Parse(&args,
		kong.Name("agentcam"),
		kong.Description("Animated timelines for agent coding sessions."),
		kong.UsageOnError(),
	)

	logger := logging.New()
	if args.Debug {
		logger.SetLevel(logging.LevelDebug)
	}

	err := kctx.Run(&appContext{
		cfg:    loadConfig(args.Config, logger),
		logger: logger,
	})
	kctx.FatalIfErrorf(err)
}
