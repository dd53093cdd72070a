package parser

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
)

// cacheMax bounds the number of cached parses.
const cacheMax = 64

type cacheKey struct {
	path  string
	mtime time.Time
}

// Cache parses transcripts and memoizes the results by
// (resolved path, mtime), so repeatedly polling an unchanged file
// skips all I/O. A file that changed evicts its own stale entries;
// the oldest entry goes when the cache is full.
type Cache struct {
	mu       sync.Mutex
	sessions map[cacheKey]*event.Session
	order    []cacheKey
}

// NewCache creates an empty parse cache.
func NewCache() *Cache {
	return &Cache{sessions: make(map[cacheKey]*event.Session)}
}

// Parse auto-detects the transcript format and parses it, serving
// repeated calls for an unchanged file from the cache.
func (c *Cache) Parse(path string) (*event.Session, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}

	var mtime time.Time
	if info, err := os.Stat(resolved); err == nil {
		mtime = info.ModTime()
	}
	key := cacheKey{path: resolved, mtime: mtime}

	c.mu.Lock()
	if session, ok := c.sessions[key]; ok {
		c.mu.Unlock()
		return session, nil
	}
	c.mu.Unlock()

	session, err := ParseFile(resolved)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop entries for the same path with other mtimes.
	kept := c.order[:0]
	for _, k := range c.order {
		if k.path == resolved && k.mtime != mtime {
			delete(c.sessions, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept

	if len(c.sessions) >= cacheMax && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.sessions, oldest)
	}
	c.sessions[key] = session
	c.order = append(c.order, key)
	return session, nil
}

// ParseFile auto-detects the format and parses the transcript, with
// no caching.
func ParseFile(path string) (*event.Session, error) {
	switch Detect(path) {
	case FormatClaudeCode:
		return ParseClaudeCode(path)
	case FormatGemini:
		return ParseGemini(path)
	}
	return ParseCodex(path)
}
