package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// AuditEntry represents a single audit log entry for an MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to <dir>/audit.jsonl and mirrors them
// to a slog.Logger at debug level. It is safe for concurrent use. A nil
// AuditLogger is safe to use; all methods are no-ops on nil receiver.
type AuditLogger struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// NewAuditLogger opens dir/audit.jsonl for appending. If the file cannot be
// created, a warning is logged and nil is returned.
func NewAuditLogger(dir string, logger *slog.Logger) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.Warn("cannot create audit log directory", "dir", dir, "error", err)
		return nil
	}

	path := filepath.Join(dir, "audit.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		logger.Warn("cannot open audit log", "path", path, "error", err)
		return nil
	}

	return &AuditLogger{file: f, logger: logger}
}

// Log writes entry as a single JSONL line. Safe to call on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	a.logger.Debug("tool call",
		"tool", entry.Tool,
		"status", entry.Status,
		"duration_ms", entry.DurationMs,
		"error", entry.Error)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = a.file.Write(data)
}

// Close closes the audit file. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// summarizeParams renders tool parameters for the audit log. Lists are
// reduced to their length, unset optional values are dropped, and a
// "_param_count" key records how many parameters were given.
func summarizeParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)
	set := 0
	for key, val := range params {
		v := reflect.ValueOf(val)
		switch {
		case !v.IsValid():
			continue
		case v.Kind() == reflect.Pointer:
			if v.IsNil() {
				continue
			}
			result[key] = fmt.Sprintf("%v", v.Elem().Interface())
		case v.Kind() == reflect.Slice:
			if v.Len() == 0 {
				continue
			}
			result[key] = fmt.Sprintf("%d items", v.Len())
		default:
			if v.IsZero() {
				continue
			}
			result[key] = fmt.Sprintf("%v", val)
		}
		set++
	}
	result["_param_count"] = fmt.Sprintf("%d", set)
	return result
}

// auditTool logs a tool invocation to the audit log.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
