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

package orchestrator

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policycopilot/platform/shared/logger"
)

func newMemoryAuditLogger() *AuditLogger {
	return NewAuditLogger(AuditConfig{RetentionDays: 365, QueueSize: 100, BatchSize: 10}, nil)
}

func TestAuditRecordAppend(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	record := l.Record(EventRoutingDecision, "q-1", map[string]interface{}{
		"selected_agent": AgentPolicyInterpreter,
		"confidence":     0.82,
	})

	assert.NotEmpty(t, record.EventID)
	assert.Equal(t, "q-1", record.QueryID)
	assert.Equal(t, EventRoutingDecision, record.EventType)
	assert.False(t, record.Timestamp.IsZero())
	assert.Equal(t, "UTC", record.Timestamp.Location().String())

	records := l.RecordsForQuery("q-1")
	require.Len(t, records, 1)
	assert.Equal(t, record.EventID, records[0].EventID)
}

func TestAuditRecordsPreserveAppendOrder(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	l.Record(EventInputGuardrail, "q-1", nil)
	l.Record(EventRoutingDecision, "q-1", nil)
	l.Record(EventOutputGuardrail, "q-1", nil)
	l.Record(EventEvaluation, "q-1", nil)

	records := l.RecordsForQuery("q-1")
	require.Len(t, records, 4)
	assert.Equal(t, EventInputGuardrail, records[0].EventType)
	assert.Equal(t, EventRoutingDecision, records[1].EventType)
	assert.Equal(t, EventOutputGuardrail, records[2].EventType)
	assert.Equal(t, EventEvaluation, records[3].EventType)
}

func TestAuditConcurrentWrites(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	const writers = 50
	const perWriter = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			queryID := fmt.Sprintf("q-%d", i)
			for j := 0; j < perWriter; j++ {
				l.Record(EventEvaluation, queryID, map[string]interface{}{"n": j})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, l.Len())
	for i := 0; i < writers; i++ {
		assert.Len(t, l.RecordsForQuery(fmt.Sprintf("q-%d", i)), perWriter)
	}
}

func TestAuditRecordsAreCopies(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	l.Record(EventEvaluation, "q-1", map[string]interface{}{"faithfulness": 0.9})

	records := l.RecordsForQuery("q-1")
	records[0].EventType = "tampered"

	fresh := l.RecordsForQuery("q-1")
	assert.Equal(t, EventEvaluation, fresh[0].EventType, "stored records must be unaffected by caller mutation")
}

func TestAuditSummaryAggregatesEvaluations(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	l.Record(EventEvaluation, "q-1", map[string]interface{}{
		"faithfulness": 0.8, "relevance": 0.6, "context_precision": 1.0, "context_recall": 0.5,
	})
	l.Record(EventEvaluation, "q-2", map[string]interface{}{
		"faithfulness": 0.4, "relevance": 0.8, "context_precision": 0.0, "context_recall": 0.5,
	})
	l.Record(EventRoutingDecision, "q-3", nil) // ignored by the summary

	summary := l.Summary()
	assert.Equal(t, 2, summary["evaluated_queries"])
	assert.InDelta(t, 0.6, summary["mean_faithfulness"].(float64), 1e-9)
	assert.InDelta(t, 0.7, summary["mean_relevance"].(float64), 1e-9)
	assert.InDelta(t, 0.5, summary["mean_context_precision"].(float64), 1e-9)
	assert.InDelta(t, 0.5, summary["mean_context_recall"].(float64), 1e-9)
}

func TestAuditSummaryAggregatesGuardrails(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	l.Record(EventInputGuardrail, "q-1", map[string]interface{}{
		"stage": "input", "risk_level": "none", "violations": []string{},
	})
	l.Record(EventInputGuardrail, "q-2", map[string]interface{}{
		"stage": "input", "risk_level": "critical", "violations": []string{"pii"},
	})
	l.Record(EventInputGuardrail, "q-3", map[string]interface{}{
		"stage": "input", "risk_level": "low", "violations": []string{"pii"},
	})
	l.Record(EventOutputGuardrail, "q-3", map[string]interface{}{
		"stage": "output", "risk_level": "high", "violations": []string{"unsupported_claims"},
	})

	summary := l.Summary()
	violations := summary["guardrail_violations"].(map[string]int)
	assert.Equal(t, 2, violations["input/pii"])
	assert.Equal(t, 1, violations["output/unsupported_claims"])

	blocked := summary["blocked_queries"].(map[string]int)
	assert.Equal(t, 1, blocked["input"], "only high or critical risk with violations blocks")
	assert.Equal(t, 1, blocked["output"])
}

func TestAuditSummaryEmptyTrail(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()

	summary := l.Summary()
	assert.Equal(t, 0, summary["evaluated_queries"])
	assert.NotContains(t, summary, "mean_faithfulness")
}

func TestAuditInMemoryLoggerIsHealthy(t *testing.T) {
	l := newMemoryAuditLogger()
	defer l.Close()
	assert.True(t, l.IsHealthy())
}

func TestAuditBatchSinkWritesOnClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO audit_records")
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "q-1", EventRoutingDecision, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l := newAuditLoggerWithDB(AuditConfig{QueueSize: 10, BatchSize: 100}, db, nil)
	l.Record(EventRoutingDecision, "q-1", map[string]interface{}{"confidence": 0.9})
	l.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditBatchSinkFlushesAtBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO audit_records")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sink := newAuditBatchSink(db, 2)
	require.NoError(t, sink.add(AuditRecord{EventID: "e1", QueryID: "q-1", EventType: EventEvaluation}))
	require.NoError(t, sink.add(AuditRecord{EventID: "e2", QueryID: "q-1", EventType: EventEvaluation}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditQueueFullNeverBlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	// Build the logger without starting the drain worker so the queue fills
	l := newAuditLoggerCore(AuditConfig{QueueSize: 1}, nil)
	l.sink = newAuditBatchSink(db, 100)

	for i := 0; i < 10; i++ {
		l.Record(EventEvaluation, "q-1", nil)
	}

	// Every record still landed in the in-memory trail
	assert.Equal(t, 10, l.Len())
}

func TestAuditQueueFullDropCarriesReasonCode(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	l := newAuditLoggerCore(AuditConfig{QueueSize: 1}, nil)
	l.log = logger.NewWithWriter("audit", &buf)
	l.sink = newAuditBatchSink(db, 100)

	for i := 0; i < 3; i++ {
		l.Record(EventEvaluation, "q-1", nil)
	}

	out := buf.String()
	assert.Contains(t, out, "audit queue full")
	assert.Contains(t, out, string(ReasonAuditWriteFailure))
}
