package parser

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/vinayprograms/agentcam/internal/event"
)

// agentColors are assigned round-robin to discovered sub-agents.
var agentColors = []string{"magenta", "yellow", "green", "red", "blue", "white"}

// toolTypeMap maps Claude Code tool names to event types.
var toolTypeMap = map[string]event.Type{
	"Bash":      event.TypeBash,
	"Read":      event.TypeFileRead,
	"Write":     event.TypeFileCreate,
	"Edit":      event.TypeFileUpdate,
	"Glob":      event.TypeToolCall,
	"Grep":      event.TypeToolCall,
	"WebSearch": event.TypeWebSearch,
	"WebFetch":  event.TypeWebSearch,
	"Task":      event.TypeSpawn,
}

// ParseClaudeCode parses a Claude Code JSONL transcript, including any
// sub-agent transcripts stored alongside it.
func ParseClaudeCode(path string) (*event.Session, error) {
	session := event.NewSession("unknown")
	main := &event.Agent{ID: "main", Name: "Main", Color: "cyan"}
	session.Agents["main"] = main

	records, err := readJSONL(path)
	if err != nil {
		return nil, err
	}

	// Session ID drives the sub-agent directory lookup.
	sessionID := stem(path)
	for _, rec := range records {
		if id := rec.str("sessionId"); id != "" {
			sessionID = id
			break
		}
	}

	// Sub-agent transcripts live under <stem>/subagents or
	// <sessionId>/subagents next to the main transcript.
	colorIdx := 0
	type subagent struct {
		id      string
		records []record
	}
	var subagents []subagent
	for _, dir := range []string{
		filepath.Join(filepath.Dir(path), stem(path), "subagents"),
		filepath.Join(filepath.Dir(path), sessionID, "subagents"),
	} {
		matches, _ := filepath.Glob(filepath.Join(dir, "agent-*.jsonl"))
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		for _, saPath := range matches {
			saRecords, err := readJSONL(saPath)
			if err != nil || len(saRecords) == 0 {
				continue
			}
			agentID := saRecords[0].str("agentId")
			if agentID == "" {
				agentID = strings.TrimPrefix(stem(saPath), "agent-")
			}
			name := agentID
			if len(name) > 7 {
				name = name[:7]
			}
			session.Agents[agentID] = &event.Agent{
				ID:         agentID,
				Name:       name,
				IsSubagent: true,
				Color:      agentColors[colorIdx%len(agentColors)],
			}
			colorIdx++
			subagents = append(subagents, subagent{id: agentID, records: saRecords})
		}
		break
	}

	processClaudeRecords(records, "main", session)
	for _, sa := range subagents {
		processClaudeRecords(sa.records, sa.id, session)
	}

	sortEvents(session.Events)

	// Session metadata comes from the first real conversation record.
	for _, rec := range records {
		typ := rec.str("type")
		if (typ == "user" || typ == "assistant") && rec.has("sessionId") {
			session.ID = rec.str("sessionId")
			session.Slug = rec.str("slug")
			session.Version = rec.str("version")
			session.Branch = rec.str("gitBranch")
			session.StartTime = parseTime(rec.str("timestamp"))
			break
		}
	}

	for _, ev := range session.Events {
		if agent, ok := session.Agents[ev.AgentID]; ok && agent.SpawnTime.IsZero() {
			agent.SpawnTime = ev.Timestamp
		}
	}
	return session, nil
}

// processClaudeRecords folds one transcript's records into the session
// as events attributed to agentID.
func processClaudeRecords(records []record, agentID string, session *event.Session) {
	agent := session.Agents[agentID]
	seenRequests := make(map[string]bool)     // agent-level token counting, once per request
	assignedRequests := make(map[string]bool) // event-level token attribution, first event per request

	for _, rec := range records {
		timestamp := parseTime(rec.str("timestamp"))

		switch rec.str("type") {
		case "user":
			msg := rec.obj("message")

			if content := msg.str("content"); strings.TrimSpace(content) != "" {
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      event.TypeUser,
					AgentID:   agentID,
					Content:   content,
				})
			}

			// Tool results arrive wrapped in user messages.
			for _, b := range msg.list("content") {
				block, ok := b.(map[string]interface{})
				if !ok || record(block).str("type") != "tool_result" {
					continue
				}
				br := record(block)
				resultText := br.str("content")
				if blocks := br.list("content"); blocks != nil {
					var parts []string
					for _, rb := range blocks {
						if inner, ok := rb.(map[string]interface{}); ok && record(inner).str("type") == "text" {
							parts = append(parts, record(inner).str("text"))
						}
					}
					resultText = strings.Join(parts, "\n")
				}
				typ := event.TypeToolResult
				if br.boolean("is_error") {
					typ = event.TypeError
				}
				session.Events = append(session.Events, event.Event{
					Timestamp: timestamp,
					Type:      typ,
					AgentID:   agentID,
					Content:   resultText,
				})
			}

		case "assistant":
			msg := rec.obj("message")
			usage := msg.obj("usage")
			requestID := rec.str("requestId")
			inTok := usage.num("input_tokens")
			outTok := usage.num("output_tokens")
			cacheTok := usage.num("cache_read_input_tokens")

			if requestID != "" && !seenRequests[requestID] {
				seenRequests[requestID] = true
				if agent != nil {
					agent.InputTokens += inTok
					agent.OutputTokens += outTok
					agent.CacheReadTokens += cacheTok
				}
			}

			// Tokens attach to the first event of each request only,
			// so per-event sums match the agent tallies.
			eventTokens := func() (int, int, int) {
				if requestID != "" && !assignedRequests[requestID] {
					assignedRequests[requestID] = true
					return inTok, outTok, cacheTok
				}
				return 0, 0, 0
			}

			for _, b := range msg.list("content") {
				block, ok := b.(map[string]interface{})
				if !ok {
					continue
				}
				br := record(block)

				switch br.str("type") {
				case "thinking":
					if strings.TrimSpace(br.str("thinking")) == "" {
						continue
					}
					in, out, cache := eventTokens()
					session.Events = append(session.Events, event.Event{
						Timestamp:       timestamp,
						Type:            event.TypeThink,
						AgentID:         agentID,
						Content:         br.str("thinking"),
						InputTokens:     in,
						OutputTokens:    out,
						CacheReadTokens: cache,
					})

				case "text":
					text := strings.TrimSpace(br.str("text"))
					if text == "" {
						continue
					}
					session.Events = append(session.Events, event.Event{
						Timestamp: timestamp,
						Type:      event.TypeText,
						AgentID:   agentID,
						Content:   text,
					})

				case "tool_use":
					name := br.str("name")
					if name == "" {
						name = "unknown"
					}
					input := br.obj("input")
					typ, ok := toolTypeMap[name]
					if !ok {
						typ = event.TypeToolCall
					}

					var filePath, description string
					switch name {
					case "Read", "Write", "Edit":
						filePath = input.str("file_path")
					case "Bash":
						description = input.str("description")
						if description == "" {
							description = input.str("command")
						}
					case "Task":
						description = input.str("description")
					case "Glob", "Grep":
						description = input.str("pattern")
					case "WebSearch":
						description = input.str("query")
					case "WebFetch":
						description = input.str("url")
					default:
						description = renderArgs(map[string]interface{}(input), name)
					}

					content := description
					if content == "" {
						content = filePath
					}
					in, out, cache := eventTokens()
					session.Events = append(session.Events, event.Event{
						Timestamp:       timestamp,
						Type:            typ,
						AgentID:         agentID,
						ToolName:        name,
						FilePath:        filePath,
						Content:         content,
						InputTokens:     in,
						OutputTokens:    out,
						CacheReadTokens: cache,
					})
				}
			}
		}
	}
}
