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
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("guardrails", &buf)

	l.Info("q-123", "input validated", map[string]interface{}{"violations": 0})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, INFO, entry.Level)
	assert.Equal(t, "guardrails", entry.Component)
	assert.Equal(t, "q-123", entry.QueryID)
	assert.Equal(t, "input validated", entry.Message)
	assert.EqualValues(t, 0, entry.Fields["violations"])
	assert.NotEmpty(t, entry.Timestamp)
}

func TestLogger_OmitsEmptyQueryID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("router", &buf)

	l.Warn("", "registry empty", nil)

	assert.NotContains(t, buf.String(), "query_id")
}

func TestLogger_InfoWithDuration(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("pipeline", &buf)

	l.InfoWithDuration("q-9", "query processed", 42, nil)

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.EqualValues(t, 42, entry.Fields["duration_ms"])
}

func TestLogger_ConcurrentWritesProduceWholeLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("audit", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Info("q-concurrent", "event recorded", nil)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		var entry LogEntry
		assert.NoError(t, json.Unmarshal([]byte(line), &entry))
	}
}
