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

import "strings"

// Agent names the router can select. The registry is resolved at startup;
// these constants are the only dispatch keys the router emits.
const (
	AgentPolicyInterpreter = "policy_interpreter"
	AgentWorkflowPlanner   = "workflow_planner"
	AgentExceptionHandler  = "exception_handler"
	AgentClarification     = "clarification"
)

// intentRule scores one intent from lexical signals. Rules are stored in
// fixed priority order: policy_interpretation > workflow_planning >
// exception_handling, which breaks score ties.
type intentRule struct {
	intent   IntentLabel
	agent    string
	keywords map[string]float64
}

// QueryRouter classifies query intent against the fixed label set and
// selects the target agent. Routing is purely lexical and deterministic:
// identical text always yields an identical RoutingDecision.
type QueryRouter struct {
	threshold float64
	rules     []intentRule
}

// NewQueryRouter creates a router with the fixed healthcare-operations
// intent vocabulary. Queries scoring below threshold resolve to unknown
// and route to the clarification fallback.
func NewQueryRouter(threshold float64) *QueryRouter {
	return &QueryRouter{
		threshold: threshold,
		rules: []intentRule{
			{
				intent:   IntentPolicyInterpretation,
				agent:    AgentPolicyInterpreter,
				keywords: map[string]float64{
					"policy": 2.0, "policies": 2.0, "compliance": 1.5,
					"regulation": 1.5, "regulations": 1.5, "guideline": 1.5,
					"guidelines": 1.5, "hipaa": 1.5, "rule": 1.0, "rules": 1.0,
					"coverage": 1.0, "insurance": 1.0, "authorization": 1.0,
					"allowed": 1.0, "required": 1.0, "requirement": 1.0,
					"requirements": 1.0,
				},
			},
			{
				intent:   IntentWorkflowPlanning,
				agent:    AgentWorkflowPlanner,
				keywords: map[string]float64{
					"workflow": 2.0, "steps": 1.5, "step": 1.0, "plan": 1.5,
					"checklist": 1.5, "schedule": 1.0, "scheduling": 1.0,
					"appointment": 1.0, "procedure": 1.0, "process": 1.0,
					"discharge": 1.0, "admission": 1.0, "booking": 1.0,
				},
			},
			{
				intent:   IntentExceptionHandling,
				agent:    AgentExceptionHandler,
				keywords: map[string]float64{
					"exception": 2.0, "emergency": 1.5, "urgent": 1.5,
					"problem": 1.5, "error": 1.5, "denied": 1.5, "denial": 1.5,
					"escalate": 1.5, "escalation": 1.5, "failed": 1.0,
					"failure": 1.0, "issue": 1.0, "dispute": 1.0,
				},
			},
		},
	}
}

// Route classifies the query's intent and selects the target agent
func (r *QueryRouter) Route(query Query) RoutingDecision {
	tokens := tokenize(query.RawText)

	var total float64
	var best *intentRule
	var bestScore float64

	// Rules are ordered by priority, so a strict > keeps the
	// higher-priority intent on ties.
	for i := range r.rules {
		rule := &r.rules[i]
		score := rule.score(tokens)
		total += score
		if score > bestScore {
			best = rule
			bestScore = score
		}
	}

	confidence := 0.0
	if bestScore > 0 {
		// Share of matched weight, damped by absolute signal strength.
		// The saturation term is strictly below 1, so even an unambiguous
		// single-keyword match never reads as certainty: one weight-2.0
		// keyword yields 0.5, one weight-1.0 keyword ~0.33 (below the
		// default 0.4 threshold).
		share := bestScore / total
		saturation := bestScore / (bestScore + 2.0)
		confidence = share * saturation
	}

	if best == nil || confidence < r.threshold {
		return RoutingDecision{
			QueryID:       query.ID,
			SelectedAgent: AgentClarification,
			Intent:        IntentUnknown,
			Confidence:    confidence,
		}
	}

	return RoutingDecision{
		QueryID:       query.ID,
		SelectedAgent: best.agent,
		Intent:        best.intent,
		Confidence:    confidence,
	}
}

// score sums the weights of matched keywords, counting each at most once.
// Tokens are visited in text order so float accumulation is deterministic.
func (rule *intentRule) score(tokens []string) float64 {
	var score float64
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		score += rule.keywords[tok]
	}
	return score
}

// tokenize lowercases and splits text into alphanumeric words
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
