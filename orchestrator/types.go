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

import "time"

// Query is a single user question. Immutable once created.
type Query struct {
	ID          string    `json:"id"`
	RawText     string    `json:"raw_text"`
	SubmittedBy string    `json:"submitted_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// IntentLabel is the classified purpose of a query
type IntentLabel string

const (
	IntentPolicyInterpretation IntentLabel = "policy_interpretation"
	IntentWorkflowPlanning     IntentLabel = "workflow_planning"
	IntentExceptionHandling    IntentLabel = "exception_handling"
	IntentUnknown              IntentLabel = "unknown"
)

// RoutingDecision records which agent a query was routed to and why.
// Created by the router, read-only thereafter.
type RoutingDecision struct {
	QueryID       string      `json:"query_id"`
	SelectedAgent string      `json:"selected_agent"`
	Intent        IntentLabel `json:"intent_label"`
	Confidence    float64     `json:"confidence"`
}

// RetrievedPassage is one policy excerpt returned by the vector store,
// ordered by relevance score descending. Not persisted beyond the request.
type RetrievedPassage struct {
	SourceDocument string  `json:"source_document"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AgentResponse is the result of dispatching a routed query to an agent.
// A degraded response (Failed true, confidence 0) is still well-formed;
// dispatch never surfaces an error to its caller.
type AgentResponse struct {
	QueryID       string             `json:"query_id"`
	AgentName     string             `json:"agent_name"`
	AnswerText    string             `json:"answer_text"`
	PassagesUsed  []RetrievedPassage `json:"passages_used"`
	RawConfidence float64            `json:"raw_confidence"`
	Failed        bool               `json:"failed,omitempty"`
	FailureReason ReasonCode         `json:"failure_reason,omitempty"`
	Ungrounded    bool               `json:"ungrounded,omitempty"`
}

// GuardrailStage identifies which side of generation a verdict covers
type GuardrailStage string

const (
	StageInput  GuardrailStage = "input"
	StageOutput GuardrailStage = "output"
)

// ViolationKind categorizes a guardrail finding
type ViolationKind string

const (
	ViolationEmptyInput        ViolationKind = "empty_input"
	ViolationOversizedInput    ViolationKind = "oversized_input"
	ViolationInjection         ViolationKind = "injection"
	ViolationPII               ViolationKind = "pii"
	ViolationUnsupportedClaims ViolationKind = "unsupported_claims"
)

// RiskLevel grades the severity of a guardrail verdict
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// AtLeast reports whether r is as severe as other
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// maxRisk returns the more severe of two risk levels
func maxRisk(a, b RiskLevel) RiskLevel {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// GuardrailVerdict is the outcome of validating one stage. A query or
// answer carries at most one verdict per stage.
type GuardrailVerdict struct {
	Stage         GuardrailStage  `json:"stage"`
	Violations    []ViolationKind `json:"violations"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	SanitizedText string          `json:"sanitized_text"`
}

// Blocks reports whether this verdict prevents the answer from being
// delivered: a non-empty violation set at high or critical risk.
func (v GuardrailVerdict) Blocks() bool {
	return len(v.Violations) > 0 && v.RiskLevel.AtLeast(RiskHigh)
}

// EvaluationScore holds the RAG quality metrics for one delivered answer,
// each in [0,1]. Computed once, never recomputed.
type EvaluationScore struct {
	Faithfulness     float64 `json:"faithfulness"`
	Relevance        float64 `json:"relevance"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
}

// Audit event types written by the pipeline. Exactly one of each exists
// per completed successful flow.
const (
	EventRoutingDecision = "routing_decision"
	EventInputGuardrail  = "input_guardrail"
	EventOutputGuardrail = "output_guardrail"
	EventEvaluation      = "evaluation"
)

// AuditRecord is one immutable entry in the compliance trail. Records are
// append-only: no update or delete operation exists on this type or its
// stores.
type AuditRecord struct {
	EventID   string                 `json:"event_id"`
	QueryID   string                 `json:"query_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// GuardrailStatus summarizes both verdicts for the caller-facing result
type GuardrailStatus struct {
	Input  StageStatus `json:"input"`
	Output StageStatus `json:"output"`
}

// StageStatus is the caller-visible view of one guardrail verdict
type StageStatus struct {
	RiskLevel  RiskLevel       `json:"risk_level"`
	Violations []ViolationKind `json:"violations,omitempty"`
}

// QueryResult is the structured per-request result the core exposes upward
type QueryResult struct {
	QueryID          string             `json:"query_id"`
	Answer           string             `json:"answer"`
	PassagesUsed     []RetrievedPassage `json:"passages_used"`
	Confidence       float64            `json:"confidence"`
	Intent           IntentLabel        `json:"intent"`
	AgentUsed        string             `json:"agent_used"`
	Evaluation       *EvaluationScore   `json:"evaluation,omitempty"`
	GuardrailStatus  GuardrailStatus    `json:"guardrail_status"`
	Ungrounded       bool               `json:"ungrounded,omitempty"`
	ReasonCode       ReasonCode         `json:"reason_code,omitempty"`
	Message          string             `json:"message,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}
