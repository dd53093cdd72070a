// Package bookmark persists per-session replay positions so a replay
// can resume where it left off.
package bookmark

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Bookmark records where a replay of one transcript stopped.
type Bookmark struct {
	SessionPath string    `json:"session_path"`
	Position    int       `json:"position"`
	Speed       float64   `json:"speed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store manages bookmarks, one JSON file per session path.
type Store struct {
	dir       string
	bookmarks map[string]*Bookmark
	mu        sync.RWMutex
}

// NewStore creates a bookmark store under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bookmark directory: %w", err)
	}
	return &Store{
		dir:       dir,
		bookmarks: make(map[string]*Bookmark),
	}, nil
}

// Save records the replay position and speed for a session.
func (s *Store) Save(sessionPath string, position int, speed float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks[sessionPath] = &Bookmark{
		SessionPath: sessionPath,
		Position:    position,
		Speed:       speed,
		UpdatedAt:   time.Now().UTC(),
	}
	return s.flush(sessionPath)
}

// Get retrieves the bookmark for a session, nil if none exists.
func (s *Store) Get(sessionPath string) *Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks[sessionPath]
}

// Delete removes a session's bookmark.
func (s *Store) Delete(sessionPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bookmarks, sessionPath)
	err := os.Remove(s.filePath(sessionPath))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// flush writes one bookmark to disk via a temp file and rename, so a
// crash mid-write never leaves a truncated bookmark behind.
func (s *Store) flush(sessionPath string) error {
	bm := s.bookmarks[sessionPath]
	data, err := json.MarshalIndent(bm, "", "  ")
	if err != nil {
		return err
	}
	path := s.filePath(sessionPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// filePath names the bookmark file by a hash of the session path;
// session paths contain separators and can exceed name limits.
func (s *Store) filePath(sessionPath string) string {
	sum := sha1.Sum([]byte(sessionPath))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

// Load reads all bookmarks from disk.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var bm Bookmark
		if err := json.Unmarshal(data, &bm); err != nil {
			continue
		}
		if bm.SessionPath == "" {
			continue
		}
		s.bookmarks[bm.SessionPath] = &bm
	}
	return nil
}
