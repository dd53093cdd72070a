// Package server exposes the web dashboard: a JSON API for session
// discovery and parsing, and WebSocket feeds for live deltas. In
// public mode everything leaving the process goes through the
// redactor.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vinayprograms/agentcam/internal/config"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/redact"
	"github.com/vinayprograms/agentcam/internal/scanner"
	"github.com/vinayprograms/agentcam/internal/telemetry"
)

const (
	sessionPollInterval   = 2 * time.Second
	masterPollInterval    = 3 * time.Second
	dashboardPollInterval = 10 * time.Second
)

// Server hosts the dashboard API and WebSocket feeds.
type Server struct {
	cfg      config.ServerConfig
	scan     *scanner.Scanner
	cache    *parser.Cache
	red      *redact.Redactor
	log      *logging.Logger
	tel      *telemetry.Provider
	hub      *masterHub
	upgrader websocket.Upgrader
}

// New creates a server. The redactor decides public mode; pub, when
// non-nil, receives every event the aggregate feed dispatches.
func New(cfg config.ServerConfig, scan *scanner.Scanner, cache *parser.Cache, red *redact.Redactor, logger *logging.Logger, tel *telemetry.Provider, pub notify.Publisher) *Server {
	if logger == nil {
		logger = logging.New()
	}
	return &Server{
		cfg:   cfg,
		scan:  scan,
		cache: cache,
		red:   red,
		log:   logger.WithComponent("server"),
		tel:   tel,
		hub:   newMasterHub(scan, cache, red, logger, pub),
		upgrader: websocket.Upgrader{
			// The dashboard is a local tool; cross-origin pages on
			// localhost are the normal case.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/api/sessions", s.handleSessions)
	r.GET("/api/session/*id", s.handleSession)
	r.GET("/api/master", s.handleMaster)
	r.GET("/ws/session/*id", s.handleSessionWS)
	r.GET("/ws/master", s.handleMasterWS)
	r.GET("/ws/dashboard", s.handleDashboardWS)
	return r
}

// Run starts the master aggregator and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.run(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	mode := ""
	if s.red.Enabled() {
		mode = " (public mode, secrets redacted)"
	}
	s.log.Info("dashboard listening", map[string]interface{}{
		"url":  "http://" + addr,
		"mode": strings.TrimSpace(mode),
	})

	if s.cfg.OpenBrowser {
		go openBrowser("http://" + addr)
	}

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleSessions(c *gin.Context) {
	_, span := s.tel.StartSpan(c.Request.Context(), "api.sessions")
	defer span.End()

	summaries := s.scan.Scan()
	out := make([]scanner.Summary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, s.redactSummary(sum))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSession(c *gin.Context) {
	_, span := s.tel.StartSpan(c.Request.Context(), "api.session")
	defer span.End()

	path, ok := s.resolveSession(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	session, err := s.cache.Parse(path)
	if err != nil {
		s.log.Warn("parse failed", map[string]interface{}{"path": path, "error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse session"})
		return
	}
	c.JSON(http.StatusOK, s.red.Session(session))
}

func (s *Server) handleMaster(c *gin.Context) {
	_, span := s.tel.StartSpan(c.Request.Context(), "api.master")
	defer span.End()

	c.JSON(http.StatusOK, s.hub.snapshot())
}

// resolveSession maps a route parameter (hashed path in public mode,
// session ID, or direct path) to a transcript file.
func (s *Server) resolveSession(id string) (string, bool) {
	id = strings.TrimPrefix(id, "/")
	id = s.red.Resolve(id)
	sum, ok := s.scan.Find(id)
	if !ok {
		return "", false
	}
	return sum.FilePath, true
}

func (s *Server) redactSummary(sum scanner.Summary) scanner.Summary {
	sum.FilePath = s.red.HashPath(sum.FilePath)
	return sum
}

// handleSessionWS streams one session: a full snapshot on connect,
// then deltas while the file keeps changing.
func (s *Server) handleSessionWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	path, ok := s.resolveSession(c.Param("id"))
	if !ok {
		conn.WriteJSON(gin.H{"error": "session not found"})
		return
	}

	session, err := s.cache.Parse(path)
	if err != nil {
		conn.WriteJSON(gin.H{"error": "failed to parse session"})
		return
	}
	if err := conn.WriteJSON(gin.H{"type": "full", "data": s.red.Session(session)}); err != nil {
		return
	}
	lastCount := len(session.Events)
	lastHash := scanner.FileHash(path)

	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}

		currentHash := scanner.FileHash(path)
		if currentHash == lastHash {
			continue
		}
		lastHash = currentHash

		session, err := s.cache.Parse(path)
		if err != nil || len(session.Events) <= lastCount {
			continue
		}
		redacted := s.red.Session(session)
		if err := conn.WriteJSON(gin.H{
			"type":         "delta",
			"events":       redacted.Events[lastCount:],
			"agents":       redacted.Agents,
			"total_events": len(redacted.Events),
		}); err != nil {
			return
		}
		lastCount = len(session.Events)
	}
}

// handleMasterWS subscribes the client to the aggregate feed.
func (s *Server) handleMasterWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, deltas := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case delta, ok := <-deltas:
			if !ok {
				return
			}
			if err := conn.WriteJSON(delta); err != nil {
				return
			}
		}
	}
}

// handleDashboardWS pushes the session list on a slow cycle.
func (s *Server) handleDashboardWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	send := func() error {
		summaries := s.scan.Scan()
		out := make([]scanner.Summary, 0, len(summaries))
		for _, sum := range summaries {
			out = append(out, s.redactSummary(sum))
		}
		return conn.WriteJSON(gin.H{"type": "sessions", "data": out})
	}

	if err := send(); err != nil {
		return
	}
	ticker := time.NewTicker(dashboardPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if err := send(); err != nil {
				return
			}
		}
	}
}

// openBrowser best-effort opens the dashboard in the default browser.
func openBrowser(url string) {
	time.Sleep(time.Second)
	switch runtime.GOOS {
	case "darwin":
		exec.Command("open", url).Start()
	case "windows":
		exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		exec.Command("xdg-open", url).Start()
	}
}
