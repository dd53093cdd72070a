package tui

import (
	"fmt"
	"hash/fnv"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/vinayprograms/agentcam/internal/animation"
	"github.com/vinayprograms/agentcam/internal/bookmark"
	"github.com/vinayprograms/agentcam/internal/config"
	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/reaction"
	"github.com/vinayprograms/agentcam/internal/timeline"
)

// Options configures a scene view session.
type Options struct {
	Path      string
	Live      bool
	Speed     float64
	Config    *config.Config
	Logger    *logging.Logger
	Publisher notify.Publisher
}

// Run parses the transcript, builds the engine stack, and runs the
// interactive scene until the user quits.
func Run(opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New()
	}
	log := logger.WithComponent("tui")

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve session path: %w", err)
	}

	cache := parser.NewCache()
	session, err := cache.Parse(path)
	if err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}

	theme := reaction.DefaultTheme()
	if cfg.Theme.Path != "" {
		loaded, err := reaction.LoadTheme(cfg.Theme.Path)
		if err != nil {
			log.Warn("theme load failed, using defaults", map[string]interface{}{"error": err})
		} else {
			theme = loaded
		}
	}

	rctx := reaction.NewContext(theme)
	ctlOpts := []timeline.Option{
		timeline.WithLogger(logger),
		timeline.WithMinDelay(cfg.MinDelay()),
		timeline.WithCapGap(cfg.CapGap()),
	}
	if opts.Publisher != nil {
		ctlOpts = append(ctlOpts, timeline.WithPublisher(opts.Publisher))
	}
	ctl := timeline.New(rctx, ctlOpts...)
	eventLog := event.NewLog(session.Events)

	bookmarks, err := bookmark.NewStore(filepath.Join(cfg.StoragePath(), "bookmarks"))
	if err != nil {
		log.Warn("bookmark store unavailable", map[string]interface{}{"error": err})
		bookmarks = nil
	} else if err := bookmarks.Load(); err != nil {
		log.Warn("bookmark load failed", map[string]interface{}{"error": err})
	}

	var watcher *fsnotify.Watcher
	if opts.Live {
		ctl.EnterLive(eventLog)
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch session file: %w", err)
		}
		defer watcher.Close()
	} else {
		speed := opts.Speed
		if speed <= 0 {
			speed = cfg.Replay.Speed
		}
		ctl.EnterReplay(eventLog, speed)
		if bookmarks != nil {
			if bm := bookmarks.Get(path); bm != nil {
				ctl.SetSpeed(bm.Speed)
				ctl.Seek(bm.Position)
				log.Info("resumed from bookmark", map[string]interface{}{
					"position": bm.Position,
					"speed":    bm.Speed,
				})
			}
		}
	}

	title := session.Slug
	if title == "" {
		title = session.ID
	}

	m := &Model{
		path:      path,
		title:     title,
		live:      opts.Live,
		cache:     cache,
		ctl:       ctl,
		rctx:      rctx,
		palette:   theme.Palette,
		bookmarks: bookmarks,
		watcher:   watcher,
		log:       log,
		eventLog:  eventLog,
		seed:      seedFor(session.ID),
	}

	prog := tea.NewProgram(m, tea.WithAltScreen())

	driver := animation.NewDriver(cfg.Animation.FPS, logger)
	driver.Start("tui:"+path, m.seed, func(frame int64) {
		prog.Send(frameMsg(frame))
	})
	defer driver.StopAll()
	defer ctl.Stop()

	_, err = prog.Run()
	return err
}

// seedFor derives a stable scene seed from the session ID so a session
// keeps its layout variant across runs.
func seedFor(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
