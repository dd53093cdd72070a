// Package event defines the domain model for agent session activity:
// events, agents, sessions, and the append-only event log that the
// timeline engine reads from.
package event

import "time"

// Type classifies a single unit of agent activity.
type Type string

// Event types produced by the transcript parsers.
const (
	TypeSpawn      Type = "spawn"
	TypeThink      Type = "think"
	TypeToolCall   Type = "tool_call"
	TypeToolResult Type = "tool_result"
	TypeFileCreate Type = "file_create"
	TypeFileUpdate Type = "file_update"
	TypeFileRead   Type = "file_read"
	TypeBash       Type = "bash"
	TypeWebSearch  Type = "web_search"
	TypeText       Type = "text"
	TypeError      Type = "error"
	TypeComplete   Type = "complete"
	TypeUser       Type = "user"
)

// Event is one timestamped unit of recorded agent activity.
// Events are immutable once produced; consumers hold read references
// or indices into the owning Log, never mutated copies.
type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	Type            Type      `json:"type"`
	AgentID         string    `json:"agent_id"`
	ToolName        string    `json:"tool_name,omitempty"`
	FilePath        string    `json:"file_path,omitempty"`
	ShortPath       string    `json:"short_path,omitempty"`
	InputTokens     int       `json:"input_tokens,omitempty"`
	OutputTokens    int       `json:"output_tokens,omitempty"`
	CacheReadTokens int       `json:"cache_read_tokens,omitempty"`
	Content         string    `json:"content,omitempty"`
	Project         string    `json:"project,omitempty"`
}

// HasTimestamp reports whether the event carries a usable timestamp.
func (e Event) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// Agent describes one agent (main or sub-agent) seen in a session.
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	IsSubagent      bool      `json:"is_subagent"`
	Color           string    `json:"color"`
	SpawnTime       time.Time `json:"spawn_time,omitempty"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	CacheReadTokens int       `json:"cache_read_tokens"`
	Project         string    `json:"project,omitempty"`
}

// Session is a fully parsed transcript: metadata, agents, and the
// ordered event list.
type Session struct {
	ID        string            `json:"id"`
	Slug      string            `json:"slug,omitempty"`
	Version   string            `json:"version,omitempty"`
	Branch    string            `json:"branch,omitempty"`
	StartTime time.Time         `json:"start_time,omitempty"`
	Agents    map[string]*Agent `json:"agents"`
	Events    []Event           `json:"events"`
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		Agents: make(map[string]*Agent),
		Events: []Event{},
	}
}
