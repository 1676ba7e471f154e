// Package audit implements the append-only JSONL audit log that records one
// sanitized entry per dispatched request.
package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Event is the sanitized representation of a single tool request.
type Event struct {
	Timestamp string                 `json:"timestamp"`
	RequestID string                 `json:"request_id"`
	Tool      string                 `json:"tool"`
	OK        bool                   `json:"ok"`
	Blocked   bool                   `json:"blocked"`
	ErrorCode *string                `json:"error_code"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// UTCTimestamp returns a millisecond-precision ISO-8601 UTC timestamp with a
// literal "Z" suffix, matching the format persisted throughout the on-disk
// state (manifest timestamps, audit entries).
func UTCTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

var passthroughStringKeys = map[string]bool{"path": true, "glob": true, "file_glob": true, "mode": true}
var passthroughIntKeys = map[string]bool{"start_line": true, "end_line": true, "top_k": true, "max_results": true, "limit": true}
var passthroughBoolKeys = map[string]bool{"include_hidden": true, "force": true, "include_tests": true}
var presenceOnlyKeys = map[string]bool{"query": true, "prompt": true}

// SanitizeArguments strips potentially sensitive string payloads (free-text
// query/prompt arguments) down to presence+length, passes through a small
// set of known-safe scalar keys, and summarizes lists/maps by shape so the
// audit log never retains content that could leak source text or secrets.
func SanitizeArguments(arguments map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(arguments))
	keys := make([]string, 0, len(arguments))
	for k := range arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := arguments[key]
		switch v := value.(type) {
		case string:
			if presenceOnlyKeys[key] {
				sanitized[key+"_present"] = true
				sanitized[key+"_length"] = len(v)
				continue
			}
			if passthroughStringKeys[key] {
				sanitized[key] = v
				continue
			}
			sanitized[key+"_present"] = true
			sanitized[key+"_length"] = len(v)
		case int:
			if passthroughIntKeys[key] {
				sanitized[key] = v
				continue
			}
			sanitized[key] = v
		case int64:
			if passthroughIntKeys[key] {
				sanitized[key] = v
				continue
			}
			sanitized[key] = v
		case float64:
			if passthroughIntKeys[key] {
				sanitized[key] = v
				continue
			}
			sanitized[key] = v
		case bool:
			if passthroughBoolKeys[key] {
				sanitized[key] = v
				continue
			}
			sanitized[key] = v
		case nil:
			sanitized[key] = nil
		case []interface{}:
			sanitized[key+"_type"] = "list"
			sanitized[key+"_length"] = len(v)
		case map[string]interface{}:
			innerKeys := make([]string, 0, len(v))
			for ik := range v {
				innerKeys = append(innerKeys, ik)
			}
			sort.Strings(innerKeys)
			sanitized[key+"_type"] = "dict"
			sanitized[key+"_keys"] = innerKeys
		default:
			sanitized[key+"_type"] = goTypeName(value)
		}
	}
	return sanitized
}

func goTypeName(v interface{}) string {
	switch v.(type) {
	case []string:
		return "list"
	default:
		return "unknown"
	}
}

// Logger is an append-only JSONL audit logger and bounded reader.
type Logger struct {
	path string
}

// NewLogger ensures the parent directory of path exists and returns a Logger
// writing to it.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logger{path: path}, nil
}

// Path returns the on-disk JSONL path.
func (l *Logger) Path() string {
	return l.path
}

// Append writes one JSON object per line, flushing immediately so the audit
// trail survives a crash of the process.
func (l *Logger) Append(event Event) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(encoded, '\n')); err != nil {
		return err
	}
	return nil
}

// Read returns up to limit most-recent events, in chronological order,
// optionally filtered to timestamps >= since (ISO-8601 strings compare
// lexicographically in timestamp order, so a plain string comparison works).
func (l *Logger) Read(since string, limit int) ([]Event, error) {
	if limit < 1 {
		return nil, nil
	}

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if since != "" && ev.Timestamp < since {
			continue
		}
		entries = append(entries, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(entries) <= limit {
		return entries, nil
	}
	return entries[len(entries)-limit:], nil
}
