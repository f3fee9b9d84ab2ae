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
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"policycopilot/platform/shared/logger"
)

// AuditLogger is the append-only compliance trail. Every record lands in
// the in-memory store synchronously; when a database is configured, records
// are additionally batched to Postgres in the background. There is no
// update or delete path: records are immutable once written, and retention
// cleanup is an administrative job outside this process.
type AuditLogger struct {
	mu      sync.RWMutex
	records []AuditRecord
	byQuery map[string][]int

	sink         *auditBatchSink
	queue        chan AuditRecord
	shutdownOnce sync.Once
	shutdown     chan struct{}
	wg           sync.WaitGroup
	log          *logger.Logger
	metrics      *MetricsCollector
}

// NewAuditLogger creates a logger, attaching a Postgres sink when a
// database URL is configured. A failed database connection degrades to
// in-memory only; audit writes never fail the request path.
func NewAuditLogger(cfg AuditConfig, metrics *MetricsCollector) *AuditLogger {
	l := newAuditLoggerCore(cfg, metrics)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			l.log.Error("", "audit database unavailable, running in-memory only", map[string]interface{}{
				"error": err.Error(),
			})
			return l
		}
		if err := createAuditTable(db); err != nil {
			l.log.Error("", "audit table creation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		l.attachSink(db, cfg.BatchSize)
	}
	return l
}

// newAuditLoggerWithDB attaches a pre-opened database, used by tests with
// sqlmock.
func newAuditLoggerWithDB(cfg AuditConfig, db *sql.DB, metrics *MetricsCollector) *AuditLogger {
	l := newAuditLoggerCore(cfg, metrics)
	l.attachSink(db, cfg.BatchSize)
	return l
}

func newAuditLoggerCore(cfg AuditConfig, metrics *MetricsCollector) *AuditLogger {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &AuditLogger{
		byQuery:  make(map[string][]int),
		queue:    make(chan AuditRecord, queueSize),
		shutdown: make(chan struct{}),
		log:      logger.New("audit"),
		metrics:  metrics,
	}
}

func (l *AuditLogger) attachSink(db *sql.DB, batchSize int) {
	if batchSize <= 0 {
		batchSize = 100
	}
	l.sink = newAuditBatchSink(db, batchSize)
	l.wg.Add(1)
	go l.drainQueue()
}

// Record appends one immutable event to the trail and returns it. The
// in-memory append is synchronous; the database write is asynchronous and
// never blocks or fails the caller.
func (l *AuditLogger) Record(eventType, queryID string, payload map[string]interface{}) AuditRecord {
	record := AuditRecord{
		EventID:   uuid.New().String(),
		QueryID:   queryID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	l.mu.Lock()
	l.records = append(l.records, record)
	l.byQuery[queryID] = append(l.byQuery[queryID], len(l.records)-1)
	l.mu.Unlock()

	if l.sink != nil {
		select {
		case l.queue <- record:
		default:
			// Dropping the DB copy, never the in-memory record
			l.log.Warn(queryID, "audit queue full, database copy dropped", map[string]interface{}{
				"event_type":  eventType,
				"reason_code": string(ReasonAuditWriteFailure),
			})
			if l.metrics != nil {
				l.metrics.AuditDrop()
			}
		}
	}
	return record
}

// RecordsForQuery returns copies of all records for a query, in append
// order.
func (l *AuditLogger) RecordsForQuery(queryID string) []AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	indexes := l.byQuery[queryID]
	out := make([]AuditRecord, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, l.records[i])
	}
	return out
}

// Len returns the total number of records in the trail
func (l *AuditLogger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Summary aggregates evaluation and guardrail events into a derived view:
// per-metric evaluation means, violation counts per stage and kind, and
// blocked-query counts per stage. Everything is derived from the trail;
// nothing is stored separately.
func (l *AuditLogger) Summary() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var count int
	sums := map[string]float64{}
	violations := map[string]int{}
	blocked := map[string]int{}

	for _, r := range l.records {
		switch r.EventType {
		case EventEvaluation:
			count++
			for _, metric := range []string{"faithfulness", "relevance", "context_precision", "context_recall"} {
				if v, ok := r.Payload[metric].(float64); ok {
					sums[metric] += v
				}
			}
		case EventInputGuardrail, EventOutputGuardrail:
			stage, _ := r.Payload["stage"].(string)
			kinds := payloadStrings(r.Payload["violations"])
			for _, kind := range kinds {
				violations[stage+"/"+kind]++
			}
			risk, _ := r.Payload["risk_level"].(string)
			if len(kinds) > 0 && RiskLevel(risk).AtLeast(RiskHigh) {
				blocked[stage]++
			}
		}
	}

	summary := map[string]interface{}{
		"evaluated_queries":    count,
		"guardrail_violations": violations,
		"blocked_queries":      blocked,
	}
	for metric, sum := range sums {
		if count > 0 {
			summary["mean_"+metric] = sum / float64(count)
		}
	}
	return summary
}

// payloadStrings reads a payload list written either as []string (in-memory
// records) or []interface{} (records decoded from JSON).
func payloadStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IsHealthy reports whether the configured sink is reachable. In-memory
// only loggers are always healthy.
func (l *AuditLogger) IsHealthy() bool {
	if l.sink == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.sink.db.PingContext(ctx) == nil
}

// Close flushes pending database writes and stops the background worker
func (l *AuditLogger) Close() {
	l.shutdownOnce.Do(func() {
		close(l.shutdown)
	})
	l.wg.Wait()
	if l.sink != nil {
		l.sink.flushAll()
	}
}

func (l *AuditLogger) drainQueue() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case record := <-l.queue:
			if err := l.sink.add(record); err != nil {
				l.log.Error(record.QueryID, "audit batch write failed", map[string]interface{}{
					"error":       err.Error(),
					"reason_code": string(ReasonAuditWriteFailure),
				})
			}
		case <-ticker.C:
			if err := l.sink.flushAll(); err != nil {
				l.log.Error("", "audit flush failed", map[string]interface{}{
					"error":       err.Error(),
					"reason_code": string(ReasonAuditWriteFailure),
				})
			}
		case <-l.shutdown:
			for {
				select {
				case record := <-l.queue:
					_ = l.sink.add(record)
				default:
					return
				}
			}
		}
	}
}

// auditBatchSink accumulates records and writes them to Postgres in
// transactions of batchSize inserts.
type auditBatchSink struct {
	db        *sql.DB
	batchSize int
	mu        sync.Mutex
	pending   []AuditRecord
}

func newAuditBatchSink(db *sql.DB, batchSize int) *auditBatchSink {
	return &auditBatchSink{
		db:        db,
		batchSize: batchSize,
		pending:   make([]AuditRecord, 0, batchSize),
	}
}

func (s *auditBatchSink) add(record AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, record)
	if len(s.pending) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *auditBatchSink) flushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *auditBatchSink) flushLocked() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO audit_records (event_id, query_id, event_type, payload, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range s.pending {
		payloadJSON, _ := json.Marshal(record.Payload)
		if _, err := stmt.Exec(record.EventID, record.QueryID, record.EventType, payloadJSON, record.Timestamp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.pending = s.pending[:0]
	return nil
}

// createAuditTable provisions the append-only table. The schema grants no
// UPDATE or DELETE in application code; row removal is a DBA retention job.
func createAuditTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_records (
		event_id VARCHAR(64) PRIMARY KEY,
		query_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_records_query_id ON audit_records(query_id);
	CREATE INDEX IF NOT EXISTS idx_audit_records_timestamp ON audit_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_records_event_type ON audit_records(event_type);
	`)
	return err
}
