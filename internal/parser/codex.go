package parser

import (
	"path/filepath"
	"strings"

	"github.com/vinayprograms/agentcam/internal/event"
)

// ParseCodex parses a Codex CLI rollout JSONL transcript.
//
// Codex writes rollout files to ~/.codex/sessions/YYYY/MM/DD/ with a
// type field per line: session_meta, response_item, or event_msg.
// Legacy files use type "message" with a role field instead. The
// format is still evolving, so everything here is best-effort.
func ParseCodex(path string) (*event.Session, error) {
	session := event.NewSession(stem(path))
	main := &event.Agent{ID: "main", Name: "Codex", Color: "green"}
	session.Agents["main"] = main

	records, err := readJSONL(path)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		timestamp := parseTime(rec.str("timestamp"))

		switch rec.str("type") {
		case "session_meta":
			session.StartTime = timestamp
			session.Version = rec.str("model")

		case "response_item":
			item := rec.obj("item")
			switch item.str("type") {
			case "message":
				content := codexContent(item["content"])
				typ := event.TypeText
				if item.str("role") == "user" {
					typ = event.TypeUser
				}
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      typ,
					AgentID:   "main",
					Content:   content,
				})
			case "function_call":
				name := item.str("name")
				if name == "" {
					name = "unknown"
				}
				args := item.str("arguments")
				content := name
				if args != "" {
					content = truncate(args, 500)
				}
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      codexToolType(name),
					AgentID:   "main",
					ToolName:  name,
					Content:   content,
				})
			case "function_call_output":
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      event.TypeToolResult,
					AgentID:   "main",
					Content:   truncate(item.str("output"), 2000),
				})
			}

		case "message":
			if !rec.has("role") {
				continue
			}
			content := codexContent(rec["content"])
			switch rec.str("role") {
			case "user":
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      event.TypeUser,
					AgentID:   "main",
					Content:   content,
				})
			case "assistant":
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      event.TypeText,
					AgentID:   "main",
					Content:   content,
				})
			}

		case "event_msg":
			payload := rec.obj("payload")
			if payload == nil {
				payload = rec.obj("msg")
			}
			if payload.str("type") != "token_count" {
				continue
			}
			usage := payload.obj("info").obj("last_token_usage")
			main.InputTokens += usage.num("input_tokens")
			main.OutputTokens += usage.num("output_tokens")
			cache := usage.num("cached_input_tokens")
			if cache == 0 {
				cache = usage.num("cache_read_input_tokens")
			}
			main.CacheReadTokens += cache

		case "turn_context":
			if model := rec.obj("payload").str("model"); model != "" {
				session.Version = model
			}
		}
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

// codexToolType maps Codex function-call names to event types.
func codexToolType(name string) event.Type {
	switch name {
	case "shell":
		return event.TypeBash
	case "write_file", "create_file":
		return event.TypeFileCreate
	case "edit_file", "patch":
		return event.TypeFileUpdate
	case "read_file":
		return event.TypeFileRead
	}
	return event.TypeToolCall
}

// codexContent extracts text from a Codex content field, which is
// either a string or a list of content blocks.
func codexContent(content interface{}) string {
	switch c := content.(type) {
	case string:
		return c
	case []interface{}:
		var parts []string
		for _, block := range c {
			switch b := block.(type) {
			case string:
				if b != "" {
					parts = append(parts, b)
				}
			case map[string]interface{}:
				text := record(b).str("text")
				if text == "" {
					text = record(b).str("content")
				}
				if text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// stem returns the file name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
