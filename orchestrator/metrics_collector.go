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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns the Prometheus registry for the pipeline. Each
// collector carries its own registry so multiple instances (tests, embedded
// use) never collide on registration.
type MetricsCollector struct {
	registry *prometheus.Registry

	queriesTotal    *prometheus.CounterVec
	queriesBlocked  *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	agentDispatches *prometheus.CounterVec
	agentConfidence prometheus.Histogram
	violations      *prometheus.CounterVec
	evalScores      *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	retrievalFails  prometheus.Counter
	auditDrops      prometheus.Counter
}

// NewMetricsCollector creates a collector with a fresh registry
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "copilot_queries_total",
			Help: "Queries processed, by routed intent.",
		}, []string{"intent"}),
		queriesBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "copilot_queries_blocked_total",
			Help: "Queries refused by guardrails, by stage.",
		}, []string{"stage"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "copilot_query_duration_seconds",
			Help:    "End-to-end query processing time.",
			Buckets: prometheus.DefBuckets,
		}),
		agentDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "copilot_agent_dispatches_total",
			Help: "Agent dispatches, by agent and outcome.",
		}, []string{"agent", "outcome"}),
		agentConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "copilot_agent_confidence",
			Help:    "Raw confidence reported by agents.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "copilot_guardrail_violations_total",
			Help: "Guardrail violations, by stage and kind.",
		}, []string{"stage", "kind"}),
		evalScores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "copilot_evaluation_score",
			Help:    "Evaluation metric values for delivered answers.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"metric"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "copilot_cache_hits_total",
			Help: "Retrieval cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "copilot_cache_misses_total",
			Help: "Retrieval cache misses.",
		}),
		retrievalFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "copilot_retrieval_failures_total",
			Help: "Vector store searches that failed or timed out.",
		}),
		auditDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "copilot_audit_db_drops_total",
			Help: "Audit records whose database copy was dropped on queue overflow.",
		}),
	}

	m.registry.MustRegister(
		m.queriesTotal, m.queriesBlocked, m.queryDuration,
		m.agentDispatches, m.agentConfidence, m.violations, m.evalScores,
		m.cacheHits, m.cacheMisses, m.retrievalFails, m.auditDrops,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this collector's registry
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// QueryProcessed records a completed query and its duration
func (m *MetricsCollector) QueryProcessed(intent IntentLabel, duration time.Duration) {
	m.queriesTotal.WithLabelValues(string(intent)).Inc()
	m.queryDuration.Observe(duration.Seconds())
}

// QueryBlocked records a guardrail refusal
func (m *MetricsCollector) QueryBlocked(stage GuardrailStage) {
	m.queriesBlocked.WithLabelValues(string(stage)).Inc()
}

// AgentDispatched records a dispatch outcome and, on success, confidence
func (m *MetricsCollector) AgentDispatched(response AgentResponse) {
	outcome := "ok"
	if response.Failed {
		outcome = string(response.FailureReason)
	}
	m.agentDispatches.WithLabelValues(response.AgentName, outcome).Inc()
	if !response.Failed {
		m.agentConfidence.Observe(response.RawConfidence)
	}
}

// GuardrailViolations records each violation on a verdict
func (m *MetricsCollector) GuardrailViolations(verdict GuardrailVerdict) {
	for _, kind := range verdict.Violations {
		m.violations.WithLabelValues(string(verdict.Stage), string(kind)).Inc()
	}
}

// EvaluationScored records the four metric values for one answer
func (m *MetricsCollector) EvaluationScored(score EvaluationScore) {
	m.evalScores.WithLabelValues("faithfulness").Observe(score.Faithfulness)
	m.evalScores.WithLabelValues("relevance").Observe(score.Relevance)
	m.evalScores.WithLabelValues("context_precision").Observe(score.ContextPrecision)
	m.evalScores.WithLabelValues("context_recall").Observe(score.ContextRecall)
}

// CacheHit records a retrieval served from cache
func (m *MetricsCollector) CacheHit() { m.cacheHits.Inc() }

// CacheMiss records a retrieval that fell through to the store
func (m *MetricsCollector) CacheMiss() { m.cacheMisses.Inc() }

// RetrievalFailure records a failed or timed-out store search
func (m *MetricsCollector) RetrievalFailure() { m.retrievalFails.Inc() }

// AuditDrop records a dropped database copy of an audit record
func (m *MetricsCollector) AuditDrop() { m.auditDrops.Inc() }
