// Copyright 2026 PolicyCopilot
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured JSON logging for pipeline components.
// Every entry carries the component name and, when available, the query
// identifier so reviewers can correlate log lines with audit records.
type Logger struct {
	Component  string
	InstanceID string

	mu  sync.Mutex
	out io.Writer
}

// LogEntry represents a single structured log entry
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	QueryID    string                 `json:"query_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the specified component writing to stdout.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		if host, err := os.Hostname(); err == nil {
			instanceID = host
		} else {
			instanceID = "unknown"
		}
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		out:        os.Stdout,
	}
}

// NewWithWriter creates a Logger writing to the given writer. Used by tests.
func NewWithWriter(component string, out io.Writer) *Logger {
	l := New(component)
	l.out = out
	return l
}

// Log creates a structured log entry and writes it as a single JSON line
func (l *Logger) Log(level LogLevel, queryID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		QueryID:    queryID,
		Message:    message,
		Fields:     fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(jsonBytes, '\n'))
}

// Debug logs a debug message
func (l *Logger) Debug(queryID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, queryID, message, fields)
}

// Info logs an informational message
func (l *Logger) Info(queryID, message string, fields map[string]interface{}) {
	l.Log(INFO, queryID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(queryID, message string, fields map[string]interface{}) {
	l.Log(WARN, queryID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(queryID, message string, fields map[string]interface{}) {
	l.Log(ERROR, queryID, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field attached
func (l *Logger) InfoWithDuration(queryID, message string, durationMS int64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Log(INFO, queryID, message, fields)
}
