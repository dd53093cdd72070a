package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
	"github.com/vinayprograms/agentcam/internal/notify"
	"github.com/vinayprograms/agentcam/internal/parser"
	"github.com/vinayprograms/agentcam/internal/reaction"
	"github.com/vinayprograms/agentcam/internal/redact"
	"github.com/vinayprograms/agentcam/internal/scanner"
	"github.com/vinayprograms/agentcam/internal/timeline"
)

const (
	// masterSnapshotSessions bounds the aggregate view to the most
	// recent session per project, at most this many projects.
	masterSnapshotSessions = 20
	// masterSnapshotEvents bounds the merged event list.
	masterSnapshotEvents = 2000
	// masterCatchupEvents is how much history a newly active session
	// contributes when it first appears in the feed.
	masterCatchupEvents = 20
)

// MasterDelta is one aggregate-feed message: new events across all
// active sessions, merged in timestamp order, plus the engine's
// current mood so clients animate without re-deriving it.
type MasterDelta struct {
	Type        string                  `json:"type"`
	Events      []event.Event           `json:"events"`
	Agents      map[string]*event.Agent `json:"agents"`
	ActiveCount int                     `json:"active_count"`
	Reaction    string                  `json:"reaction,omitempty"`
	Typing      string                  `json:"typing"`
}

// MasterSnapshot is the /api/master response: the freshest session per
// project with their events merged into one timeline.
type MasterSnapshot struct {
	Sessions []scanner.Summary       `json:"sessions"`
	Agents   map[string]*event.Agent `json:"agents"`
	Events   []event.Event           `json:"events"`
}

// masterHub aggregates every active session into one live stream. A
// single reaction context backs it, so the last qualifying event across
// all projects decides the mood.
type masterHub struct {
	scan  *scanner.Scanner
	cache *parser.Cache
	red   *redact.Redactor
	log   *logging.Logger

	rctx *reaction.Context
	ctl  *timeline.Controller

	mu         sync.Mutex
	clients    map[string]chan MasterDelta
	lastCounts map[string]int
	frame      int64
}

func newMasterHub(scan *scanner.Scanner, cache *parser.Cache, red *redact.Redactor, logger *logging.Logger, pub notify.Publisher) *masterHub {
	rctx := reaction.NewContext(reaction.DefaultTheme())
	opts := []timeline.Option{timeline.WithLogger(logger)}
	if pub != nil {
		opts = append(opts, timeline.WithPublisher(pub))
	}
	h := &masterHub{
		scan:       scan,
		cache:      cache,
		red:        red,
		log:        logger.WithComponent("master"),
		rctx:       rctx,
		ctl:        timeline.New(rctx, opts...),
		clients:    make(map[string]chan MasterDelta),
		lastCounts: make(map[string]int),
	}
	h.ctl.EnterLive(event.NewLog(nil))
	return h
}

// subscribe registers a feed client. The channel is buffered; a client
// that stops draining loses deltas instead of stalling the poller.
func (h *masterHub) subscribe() (string, <-chan MasterDelta) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan MasterDelta, 8)
	h.clients[id] = ch
	return id, ch
}

func (h *masterHub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// run polls active sessions until ctx is done.
func (h *masterHub) run(ctx context.Context) {
	ticker := time.NewTicker(masterPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.ctl.Stop()
			return
		case <-ticker.C:
			h.poll()
		}
	}
}

// poll collects new events from every active session, feeds them to
// the live controller, and broadcasts the delta.
func (h *masterHub) poll() {
	var (
		merged      []event.Event
		agents      = make(map[string]*event.Agent)
		activeCount int
	)

	for _, sum := range h.scan.Scan() {
		if !sum.Active {
			continue
		}
		activeCount++

		session, err := h.cache.Parse(sum.FilePath)
		if err != nil {
			continue
		}

		h.mu.Lock()
		last, seen := h.lastCounts[sum.FilePath]
		h.mu.Unlock()
		if !seen {
			// First sighting: contribute recent history, not the
			// whole transcript.
			last = len(session.Events) - masterCatchupEvents
			if last < 0 {
				last = 0
			}
		}
		if last > len(session.Events) {
			// The file was truncated or rewritten; start over.
			last = 0
		}

		for _, ev := range session.Events[last:] {
			ev.Project = sum.ProjectName
			ev.AgentID = sum.ProjectName + ":" + ev.AgentID
			merged = append(merged, h.red.Event(ev))
		}
		for id, ag := range session.Agents {
			tagged := *ag
			tagged.Project = sum.ProjectName
			tagged.Name = sum.ProjectName + "/" + ag.Name
			agents[sum.ProjectName+":"+id] = &tagged
		}

		h.mu.Lock()
		h.lastCounts[sum.FilePath] = len(session.Events)
		h.mu.Unlock()
	}

	if len(merged) == 0 && activeCount == 0 {
		return
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	h.ctl.Deliver(merged)

	h.mu.Lock()
	h.frame++
	snap := h.rctx.Observe(h.frame)
	delta := MasterDelta{
		Type:        "delta",
		Events:      merged,
		Agents:      agents,
		ActiveCount: activeCount,
		Typing:      string(snap.Typing),
	}
	if snap.Reaction != nil {
		delta.Reaction = string(snap.Reaction.Type)
	}
	for _, ch := range h.clients {
		select {
		case ch <- delta:
		default:
		}
	}
	h.mu.Unlock()
}

// snapshot builds the on-demand aggregate view for /api/master.
func (h *masterHub) snapshot() MasterSnapshot {
	summaries := h.scan.Scan()

	// Newest session per project, capped.
	seen := make(map[string]bool)
	var picked []scanner.Summary
	for _, sum := range summaries {
		if seen[sum.ProjectName] {
			continue
		}
		seen[sum.ProjectName] = true
		picked = append(picked, sum)
		if len(picked) >= masterSnapshotSessions {
			break
		}
	}

	out := MasterSnapshot{Agents: make(map[string]*event.Agent)}
	var merged []event.Event
	for _, sum := range picked {
		session, err := h.cache.Parse(sum.FilePath)
		if err != nil {
			continue
		}
		for _, ev := range session.Events {
			ev.Project = sum.ProjectName
			ev.AgentID = sum.ProjectName + ":" + ev.AgentID
			merged = append(merged, h.red.Event(ev))
		}
		for id, ag := range session.Agents {
			tagged := *ag
			tagged.Project = sum.ProjectName
			tagged.Name = sum.ProjectName + "/" + ag.Name
			out.Agents[sum.ProjectName+":"+id] = &tagged
		}
		out.Sessions = append(out.Sessions, h.redactSummaryValue(sum))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	if len(merged) > masterSnapshotEvents {
		merged = merged[len(merged)-masterSnapshotEvents:]
	}
	out.Events = merged
	return out
}

func (h *masterHub) redactSummaryValue(sum scanner.Summary) scanner.Summary {
	sum.FilePath = h.red.HashPath(sum.FilePath)
	return sum
}
