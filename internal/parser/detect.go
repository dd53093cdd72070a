package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Format identifies a transcript layout.
type Format string

const (
	FormatClaudeCode Format = "claude_code"
	FormatCodex      Format = "codex"
	FormatGemini     Format = "gemini"
)

// Detect sniffs the transcript format from the file's records.
// Unrecognized files default to the Codex format, the loosest of the
// three.
func Detect(path string) Format {
	// Gemini CLI stores legacy sessions as plain JSON, not JSONL.
	if filepath.Ext(path) == ".json" {
		if data, err := os.ReadFile(path); err == nil {
			var asObj map[string]interface{}
			if json.Unmarshal(data, &asObj) == nil {
				if _, ok := asObj["messages"]; ok {
					return FormatGemini
				}
			}
			var asList []map[string]interface{}
			if json.Unmarshal(data, &asList) == nil && len(asList) > 0 {
				if role, _ := asList[0]["role"].(string); role == "user" || role == "model" {
					return FormatGemini
				}
			}
		}
	}

	records, err := readJSONL(path)
	if err != nil {
		return FormatCodex
	}
	for _, rec := range records {
		switch rec.str("type") {
		case "file-history-snapshot":
			return FormatClaudeCode
		case "user", "assistant", "progress":
			if rec.has("sessionId") {
				return FormatClaudeCode
			}
			if rec.str("type") == "user" && rec.has("content") {
				return FormatGemini
			}
		case "session_meta", "response_item", "event_msg", "turn_context":
			return FormatCodex
		case "message":
			if rec.has("role") {
				return FormatCodex
			}
		case "session_metadata":
			return FormatGemini
		case "gemini":
			if rec.has("content") {
				return FormatGemini
			}
		}
	}
	return FormatCodex
}
