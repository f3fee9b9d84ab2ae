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
	"time"

	"github.com/google/uuid"

	"policycopilot/platform/shared/logger"
)

// Pipeline executes the full query flow: input guardrail, routing, agent
// dispatch, output guardrail, evaluation, with an audit record after each
// stage. A completed flow leaves exactly one routing_decision, one
// input_guardrail, one output_guardrail, and one evaluation record;
// guardrail refusals stop the flow early and leave only the records of the
// stages that ran.
type Pipeline struct {
	router     *QueryRouter
	manager    *AgentManager
	guardrails *GuardrailsEngine
	evaluator  *EvaluationEngine
	audit      *AuditLogger
	metrics    *MetricsCollector
	log        *logger.Logger
}

// NewPipeline wires the pipeline from its components
func NewPipeline(router *QueryRouter, manager *AgentManager, guardrails *GuardrailsEngine,
	evaluator *EvaluationEngine, audit *AuditLogger, metrics *MetricsCollector) *Pipeline {
	return &Pipeline{
		router:     router,
		manager:    manager,
		guardrails: guardrails,
		evaluator:  evaluator,
		audit:      audit,
		metrics:    metrics,
		log:        logger.New("pipeline"),
	}
}

// ProcessQuery runs one question end to end and always returns a
// well-formed result, degraded or refused as needed. It never panics the
// request away: every failure mode maps to a reason code.
func (p *Pipeline) ProcessQuery(ctx context.Context, rawText, submittedBy string) QueryResult {
	start := time.Now()

	query := Query{
		ID:          uuid.New().String(),
		RawText:     rawText,
		SubmittedBy: submittedBy,
		Timestamp:   start.UTC(),
	}
	p.log.Info(query.ID, "query received", map[string]interface{}{"chars": len(rawText)})

	inputVerdict := p.guardrails.ValidateInput(query.ID, query.RawText)
	p.audit.Record(EventInputGuardrail, query.ID, verdictPayload(inputVerdict))
	if p.metrics != nil {
		p.metrics.GuardrailViolations(inputVerdict)
	}

	if inputVerdict.RiskLevel == RiskCritical || inputVerdict.Blocks() {
		if p.metrics != nil {
			p.metrics.QueryBlocked(StageInput)
		}
		p.log.Warn(query.ID, "query refused by input guardrail", map[string]interface{}{
			"risk_level": string(inputVerdict.RiskLevel),
		})
		return p.refusal(query, start, inputVerdict, GuardrailVerdict{Stage: StageOutput, RiskLevel: RiskNone})
	}

	// Routing and everything downstream see only the sanitized text
	sanitized := query.RawText
	if inputVerdict.SanitizedText != "" {
		sanitized = inputVerdict.SanitizedText
	}
	routedQuery := Query{ID: query.ID, RawText: sanitized, SubmittedBy: query.SubmittedBy, Timestamp: query.Timestamp}

	decision := p.router.Route(routedQuery)
	p.audit.Record(EventRoutingDecision, query.ID, map[string]interface{}{
		"selected_agent": decision.SelectedAgent,
		"intent_label":   string(decision.Intent),
		"confidence":     decision.Confidence,
	})
	p.log.Info(query.ID, "query routed", map[string]interface{}{
		"agent":      decision.SelectedAgent,
		"intent":     string(decision.Intent),
		"confidence": decision.Confidence,
	})

	response := p.manager.Dispatch(ctx, decision, routedQuery)
	if p.metrics != nil {
		p.metrics.AgentDispatched(response)
	}

	outputVerdict := p.guardrails.ValidateOutput(query.ID, response.AnswerText, response.PassagesUsed)
	p.audit.Record(EventOutputGuardrail, query.ID, verdictPayload(outputVerdict))
	if p.metrics != nil {
		p.metrics.GuardrailViolations(outputVerdict)
	}

	if outputVerdict.RiskLevel == RiskCritical || outputVerdict.Blocks() {
		if p.metrics != nil {
			p.metrics.QueryBlocked(StageOutput)
		}
		p.log.Warn(query.ID, "answer refused by output guardrail", map[string]interface{}{
			"risk_level": string(outputVerdict.RiskLevel),
		})
		refused := p.refusal(query, start, inputVerdict, outputVerdict)
		refused.Intent = decision.Intent
		refused.AgentUsed = response.AgentName
		return refused
	}

	score := p.evaluator.Score(outputVerdict.SanitizedText, response.PassagesUsed, sanitized)
	p.audit.Record(EventEvaluation, query.ID, map[string]interface{}{
		"faithfulness":      score.Faithfulness,
		"relevance":         score.Relevance,
		"context_precision": score.ContextPrecision,
		"context_recall":    score.ContextRecall,
	})
	if p.metrics != nil {
		p.metrics.EvaluationScored(score)
		p.metrics.QueryProcessed(decision.Intent, time.Since(start))
	}

	result := QueryResult{
		QueryID:      query.ID,
		Answer:       outputVerdict.SanitizedText,
		PassagesUsed: response.PassagesUsed,
		Confidence:   response.RawConfidence,
		Intent:       decision.Intent,
		AgentUsed:    response.AgentName,
		Evaluation:   &score,
		GuardrailStatus: GuardrailStatus{
			Input:  StageStatus{RiskLevel: inputVerdict.RiskLevel, Violations: inputVerdict.Violations},
			Output: StageStatus{RiskLevel: outputVerdict.RiskLevel, Violations: outputVerdict.Violations},
		},
		Ungrounded:       response.Ungrounded,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	switch {
	case response.Failed:
		result.ReasonCode = response.FailureReason
		result.Message = "the answer could not be generated; please retry"
	case decision.Intent == IntentUnknown:
		result.ReasonCode = ReasonRoutingAmbiguous
		result.Message = "the question was ambiguous; a clarification was returned"
	case response.Ungrounded:
		result.ReasonCode = ReasonRetrievalUnavailable
		result.Message = "no policy context was available; treat this answer with caution"
	}

	p.log.InfoWithDuration(query.ID, "query completed", result.ProcessingTimeMs, map[string]interface{}{
		"intent":     string(result.Intent),
		"agent":      result.AgentUsed,
		"ungrounded": result.Ungrounded,
	})
	return result
}

// refusal builds the result for a guardrail rejection. No partial answer
// text ever leaks out of a refusal.
func (p *Pipeline) refusal(query Query, start time.Time, input, output GuardrailVerdict) QueryResult {
	return QueryResult{
		QueryID:    query.ID,
		Answer:     "",
		ReasonCode: ReasonGuardrailRejection,
		Message:    "the request was refused by safety checks",
		GuardrailStatus: GuardrailStatus{
			Input:  StageStatus{RiskLevel: input.RiskLevel, Violations: input.Violations},
			Output: StageStatus{RiskLevel: output.RiskLevel, Violations: output.Violations},
		},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// Summary exposes the evaluation and guardrail aggregates derived from the
// audit trail
func (p *Pipeline) Summary() map[string]interface{} {
	return p.audit.Summary()
}

func verdictPayload(v GuardrailVerdict) map[string]interface{} {
	violations := make([]string, 0, len(v.Violations))
	for _, kind := range v.Violations {
		violations = append(violations, string(kind))
	}
	return map[string]interface{}{
		"stage":      string(v.Stage),
		"risk_level": string(v.RiskLevel),
		"violations": violations,
	}
}
