// Package scanner discovers agent transcripts on disk and produces
// session summaries for the dashboard and the session picker.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Summary describes one discovered transcript without parsing it.
type Summary struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"project_name"`
	FilePath    string    `json:"file_path"`
	Source      string    `json:"source"` // claude, codex, or gemini
	ModTime     time.Time `json:"mtime"`
	Size        int64     `json:"size"`
	Active      bool      `json:"is_active"`
}

// Scanner walks the standard transcript directories plus any extra
// configured paths.
type Scanner struct {
	home         string
	extraPaths   []string
	activeWindow time.Duration
}

// New creates a scanner rooted at home (usually the user's home
// directory). A session whose file changed within activeWindow is
// marked active.
func New(home string, extraPaths []string, activeWindow time.Duration) *Scanner {
	if activeWindow <= 0 {
		activeWindow = 120 * time.Second
	}
	return &Scanner{
		home:         home,
		extraPaths:   extraPaths,
		activeWindow: activeWindow,
	}
}

// Scan returns summaries for every discovered transcript, newest
// first. Unreadable directories are skipped silently; discovery is
// best-effort by design.
func (s *Scanner) Scan() []Summary {
	now := time.Now()
	var summaries []Summary

	add := func(path, project, source string) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		summaries = append(summaries, Summary{
			ID:          stem(path),
			ProjectName: project,
			FilePath:    path,
			Source:      source,
			ModTime:     info.ModTime(),
			Size:        info.Size(),
			Active:      now.Sub(info.ModTime()) < s.activeWindow,
		})
	}

	// Claude Code: ~/.claude/projects/<encoded-path>/<uuid>.jsonl
	claudeRoot := filepath.Join(s.home, ".claude", "projects")
	if dirs, err := os.ReadDir(claudeRoot); err == nil {
		for _, dir := range dirs {
			if !dir.IsDir() {
				continue
			}
			project := claudeProjectName(dir.Name())
			matches, _ := filepath.Glob(filepath.Join(claudeRoot, dir.Name(), "*.jsonl"))
			for _, m := range matches {
				add(m, project, "claude")
			}
		}
	}

	// Codex: ~/.codex/sessions/YYYY/MM/DD/rollout-*.jsonl
	codexRoot := filepath.Join(s.home, ".codex", "sessions")
	matches, _ := filepath.Glob(filepath.Join(codexRoot, "*", "*", "*", "rollout-*.jsonl"))
	for _, m := range matches {
		add(m, "codex", "codex")
	}

	// Gemini: ~/.gemini/tmp/<hash>/logs.json plus newer session JSONL.
	geminiRoot := filepath.Join(s.home, ".gemini", "tmp")
	if dirs, err := os.ReadDir(geminiRoot); err == nil {
		for _, dir := range dirs {
			if !dir.IsDir() {
				continue
			}
			base := filepath.Join(geminiRoot, dir.Name())
			add(filepath.Join(base, "logs.json"), "gemini", "gemini")
			sessionFiles, _ := filepath.Glob(filepath.Join(base, "session-*.jsonl"))
			for _, m := range sessionFiles {
				add(m, "gemini", "gemini")
			}
		}
	}

	for _, extra := range s.extraPaths {
		for _, pattern := range []string{"*.jsonl", "*.json"} {
			found, _ := filepath.Glob(filepath.Join(extra, pattern))
			for _, m := range found {
				add(m, filepath.Base(extra), "extra")
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ModTime.After(summaries[j].ModTime)
	})
	return summaries
}

// Find locates a transcript by session ID or file path.
func (s *Scanner) Find(idOrPath string) (Summary, bool) {
	if info, err := os.Stat(idOrPath); err == nil && !info.IsDir() {
		return Summary{
			ID:       stem(idOrPath),
			FilePath: idOrPath,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		}, true
	}
	for _, summary := range s.Scan() {
		if summary.ID == idOrPath || summary.FilePath == idOrPath {
			return summary, true
		}
	}
	return Summary{}, false
}

// claudeProjectName recovers a readable project name from Claude's
// dash-encoded directory names ("-home-dev-myproj" -> "myproj").
func claudeProjectName(encoded string) string {
	parts := strings.Split(strings.Trim(encoded, "-"), "-")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return encoded
	}
	return parts[len(parts)-1]
}

// FileHash returns a quick size:mtime fingerprint for change
// detection, empty when the file is gone.
func FileHash(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
