package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
)

// ParseGemini parses a Gemini CLI session log.
//
// Gemini stores legacy sessions as JSON files (~/.gemini/tmp/<hash>/
// logs.json) holding a messages array; a JSONL format with type fields
// of session_metadata / user / gemini / message_update is being
// introduced. Both are handled.
func ParseGemini(path string) (*event.Session, error) {
	session := event.NewSession(stem(path))
	main := &event.Agent{ID: "main", Name: "Gemini", Color: "blue"}
	session.Agents["main"] = main

	var err error
	if filepath.Ext(path) == ".json" {
		err = parseGeminiJSON(path, session)
	} else {
		err = parseGeminiJSONL(path, session, main)
	}
	if err != nil {
		return nil, err
	}

	sortEvents(session.Events)
	if len(session.Events) > 0 {
		if session.StartTime.IsZero() {
			session.StartTime = session.Events[0].Timestamp
		}
		main.SpawnTime = session.Events[0].Timestamp
	}
	return session, nil
}

func parseGeminiJSON(path string, session *event.Session) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var messages []interface{}
	var asObj map[string]interface{}
	if json.Unmarshal(data, &asObj) == nil && asObj != nil {
		root := record(asObj)
		messages = root.list("messages")
		if messages == nil {
			messages = root.list("history")
		}
		if id := root.str("sessionId"); id != "" {
			session.ID = id
		}
		start := root.str("startTime")
		if start == "" {
			start = root.str("createTime")
		}
		session.StartTime = parseTime(start)
	} else {
		var asList []interface{}
		if json.Unmarshal(data, &asList) != nil {
			return nil // not a session file; leave the session empty
		}
		messages = asList
	}

	for _, m := range messages {
		msg, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		rec := record(msg)
		role := rec.str("role")
		ts := rec.str("timestamp")
		if ts == "" {
			ts = rec.str("createTime")
		}
		timestamp := parseTime(ts)

		for _, p := range rec.list("parts") {
			part, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			geminiPart(record(part), role, timestamp, session)
		}
	}
	return nil
}

// geminiPart appends events for one legacy message part: text, a
// function call, or a function response.
func geminiPart(part record, role string, timestamp time.Time, session *event.Session) {
	if text := part.str("text"); strings.TrimSpace(text) != "" {
		typ := event.TypeText
		if role == "user" {
			typ = event.TypeUser
		}
		session.Events = append(session.Events, event.Event{
			Timestamp: timestamp,
			Type:      typ,
			AgentID:   "main",
			Content:   text,
		})
	}

	if fc := part.obj("functionCall"); fc != nil {
		name := fc.str("name")
		if name == "" {
			name = "unknown"
		}
		session.Events = append(session.Events, event.Event{
			Timestamp: timestamp,
			Type:      geminiToolType(name),
			AgentID:   "main",
			ToolName:  name,
			Content:   renderArgs(fc["args"], name),
		})
	}

	if fr := part.obj("functionResponse"); fr != nil {
		content := ""
		if resp, ok := fr["response"]; ok && resp != nil {
			if data, err := json.Marshal(resp); err == nil {
				content = truncate(string(data), 2000)
			}
		}
		session.Events = append(session.Events, event.Event{
			Timestamp: timestamp,
			Type:      event.TypeToolResult,
			AgentID:   "main",
			Content:   content,
		})
	}
}

func parseGeminiJSONL(path string, session *event.Session, main *event.Agent) error {
	records, err := readJSONL(path)
	if err != nil {
		return err
	}

	for _, rec := range records {
		timestamp := parseTime(rec.str("timestamp"))

		switch rec.str("type") {
		case "session_metadata":
			if id := rec.str("sessionId"); id != "" {
				session.ID = id
			}
			if start := rec.str("startTime"); start != "" {
				session.StartTime = parseTime(start)
			} else {
				session.StartTime = timestamp
			}

		case "user", "gemini":
			typ := event.TypeText
			if rec.str("type") == "user" {
				typ = event.TypeUser
			}
			var textParts []string
			for _, b := range rec.list("content") {
				switch block := b.(type) {
				case string:
					if strings.TrimSpace(block) != "" {
						textParts = append(textParts, block)
					}
				case map[string]interface{}:
					br := record(block)
					if text := br.str("text"); strings.TrimSpace(text) != "" {
						textParts = append(textParts, text)
					}
					if fc := br.obj("functionCall"); fc != nil {
						name := fc.str("name")
						if name == "" {
							name = "unknown"
						}
						session.Events = append(session.Events, event.Event{
							Timestamp: timestamp,
							Type:      geminiToolType(name),
							AgentID:   "main",
							ToolName:  name,
							Content:   renderArgs(fc["args"], name),
						})
					}
				}
			}
			if len(textParts) > 0 {
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      typ,
					AgentID:   "main",
					Content:   strings.Join(textParts, "\n"),
				})
			}

		case "message_update":
			tokens := rec.obj("tokens")
			main.InputTokens += tokens.num("input")
			main.OutputTokens += tokens.num("output")
		}
	}
	return nil
}

// geminiToolType maps Gemini function-call names to event types.
func geminiToolType(name string) event.Type {
	if name == "run_shell" || name == "shell" {
		return event.TypeBash
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "edit"), strings.Contains(lower, "update"):
		return event.TypeFileUpdate
	case strings.Contains(lower, "read"):
		return event.TypeFileRead
	case strings.Contains(lower, "write"), strings.Contains(lower, "create"):
		return event.TypeFileCreate
	}
	return event.TypeToolCall
}
