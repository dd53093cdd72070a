// Package redact scrubs secrets and filesystem paths from session
// data before it leaves the machine. Used by the dashboard's public
// mode, meant for screen sharing and streaming.
package redact

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/vinayprograms/agentcam/internal/event"
)

// secretPattern matches values that look like credentials: key=value
// assignments for known secret names, vendor token prefixes, long
// base64-ish runs, and JWTs.
var secretPattern = regexp.MustCompile(`(?i)(?:` +
	`(?:api[_-]?key|apikey|secret[_-]?key|access[_-]?token|auth[_-]?token` +
	`|password|passwd|pwd|bearer|authorization|private[_-]?key` +
	`|client[_-]?secret|refresh[_-]?token|session[_-]?token` +
	`|database[_-]?url|connection[_-]?string|dsn` +
	`|aws[_-]?secret|stripe[_-]?sk|sk[_-]live|sk[_-]test` +
	`)\s*[=:]\s*\S+` +
	`|(?:ghp_|gho_|github_pat_|xox[bpsar]-|slack_|AKIA)[A-Za-z0-9_-]{10,}` +
	`|[A-Za-z0-9+/]{40,}` +
	`|eyJ[A-Za-z0-9_-]{20,}` +
	`)`)

// pathPattern matches absolute Unix and Windows paths.
var pathPattern = regexp.MustCompile(`(?:[A-Z]:\\|/(?:home|Users|mnt|var|etc|opt|tmp)/)\S+`)

// Redactor scrubs text, events, and sessions. A disabled redactor
// passes everything through untouched. It also keeps the map from
// hashed session paths back to real ones for public-mode routing.
type Redactor struct {
	enabled bool

	mu      sync.Mutex
	pathMap map[string]string
}

// New creates a redactor. When enabled is false all methods are
// pass-throughs.
func New(enabled bool) *Redactor {
	return &Redactor{
		enabled: enabled,
		pathMap: make(map[string]string),
	}
}

// Enabled reports whether redaction is active.
func (r *Redactor) Enabled() bool {
	return r.enabled
}

// Text redacts secret-like patterns and rewrites absolute paths to
// just the filename.
func (r *Redactor) Text(text string) string {
	if !r.enabled || text == "" {
		return text
	}
	text = secretPattern.ReplaceAllString(text, "[REDACTED]")
	text = pathPattern.ReplaceAllStringFunc(text, func(m string) string {
		p := strings.TrimRight(m, `",'`+"`"+`;:)]}> `)
		return "…/" + filepath.Base(p)
	})
	return text
}

// Event returns a scrubbed copy of the event: content redacted and
// file paths reduced to their base name.
func (r *Redactor) Event(ev event.Event) event.Event {
	if !r.enabled {
		return ev
	}
	ev.Content = r.Text(ev.Content)
	if ev.FilePath != "" {
		ev.FilePath = filepath.Base(ev.FilePath)
		ev.ShortPath = ev.FilePath
	}
	return ev
}

// Session returns a copy of the session with every event scrubbed.
func (r *Redactor) Session(s *event.Session) *event.Session {
	if !r.enabled {
		return s
	}
	out := *s
	out.Events = make([]event.Event, len(s.Events))
	for i, ev := range s.Events {
		out.Events[i] = r.Event(ev)
	}
	return &out
}

// HashPath replaces a session file path with a short hash and stores
// the mapping so Resolve can route requests back to the real file.
func (r *Redactor) HashPath(path string) string {
	if !r.enabled {
		return path
	}
	sum := md5.Sum([]byte(path))
	hashed := hex.EncodeToString(sum[:])[:12]

	r.mu.Lock()
	r.pathMap[hashed] = path
	r.mu.Unlock()
	return hashed
}

// Resolve maps a hashed path back to the real one. Unknown values
// come back unchanged, matching the non-public routing path.
func (r *Redactor) Resolve(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if real, ok := r.pathMap[id]; ok {
		return real
	}
	return id
}
