// Package parser turns agent CLI transcripts (Claude Code, Codex CLI,
// Gemini CLI) into normalized sessions. Malformed lines are skipped,
// never fatal: a half-written transcript being tailed live must still
// parse.
package parser

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/vinayprograms/agentcam/internal/event"
)

// record is one decoded JSONL line. The three formats share no schema,
// so records stay loosely typed and go through the accessors below.
type record map[string]interface{}

// readJSONL reads a JSONL file, returning the parsed records.
// Blank and undecodable lines are skipped.
func readJSONL(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

func (r record) str(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r record) obj(key string) record {
	m, _ := r[key].(map[string]interface{})
	return record(m)
}

func (r record) list(key string) []interface{} {
	l, _ := r[key].([]interface{})
	return l
}

func (r record) num(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (r record) boolean(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r record) has(key string) bool {
	_, ok := r[key]
	return ok
}

// parseTime parses a transcript timestamp. Unparseable values come
// back zero and take the minimum-delay scheduling path downstream.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sortEvents orders a session's events by timestamp, stably so that
// same-timestamp events keep their transcript order.
func sortEvents(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// truncate bounds free-form payloads pulled into event content.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// renderArgs renders tool-call arguments for event content, falling
// back to the tool name when there are none.
func renderArgs(args interface{}, name string) string {
	if args == nil {
		return name
	}
	data, err := json.Marshal(args)
	if err != nil || string(data) == "{}" || string(data) == "null" {
		return name
	}
	return truncate(string(data), 500)
}
