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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRouterIntentClassification(t *testing.T) {
	router := NewQueryRouter(0.4)

	tests := []struct {
		name       string
		text       string
		wantIntent IntentLabel
		wantAgent  string
	}{
		{
			name:       "policy question",
			text:       "What does our HIPAA compliance policy say about patient data sharing?",
			wantIntent: IntentPolicyInterpretation,
			wantAgent:  AgentPolicyInterpreter,
		},
		{
			name:       "workflow question",
			text:       "What are the steps in the patient discharge workflow?",
			wantIntent: IntentWorkflowPlanning,
			wantAgent:  AgentWorkflowPlanner,
		},
		{
			name:       "exception question",
			text:       "A prior authorization was denied, how do I escalate this exception?",
			wantIntent: IntentExceptionHandling,
			wantAgent:  AgentExceptionHandler,
		},
		{
			name:       "no signal resolves to unknown",
			text:       "hello there",
			wantIntent: IntentUnknown,
			wantAgent:  AgentClarification,
		},
		{
			name:       "empty text resolves to unknown",
			text:       "",
			wantIntent: IntentUnknown,
			wantAgent:  AgentClarification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := router.Route(Query{ID: "q-1", RawText: tt.text})
			assert.Equal(t, tt.wantIntent, decision.Intent)
			assert.Equal(t, tt.wantAgent, decision.SelectedAgent)
			assert.Equal(t, "q-1", decision.QueryID)
			assert.GreaterOrEqual(t, decision.Confidence, 0.0)
			assert.LessOrEqual(t, decision.Confidence, 1.0)
		})
	}
}

func TestQueryRouterDeterministic(t *testing.T) {
	router := NewQueryRouter(0.4)
	query := Query{ID: "q-det", RawText: "What is the prior authorization policy for urgent imaging procedures?"}

	first := router.Route(query)
	for i := 0; i < 100; i++ {
		again := router.Route(query)
		require.Equal(t, first, again, "routing must be deterministic for identical text")
	}
}

func TestQueryRouterTieBreaksByPriority(t *testing.T) {
	router := NewQueryRouter(0.0)

	// "policy" and "workflow" both carry weight 2.0; the tie must resolve
	// to policy_interpretation.
	decision := router.Route(Query{ID: "q-tie", RawText: "policy workflow"})
	assert.Equal(t, IntentPolicyInterpretation, decision.Intent)
	assert.Equal(t, AgentPolicyInterpreter, decision.SelectedAgent)
}

func TestQueryRouterBelowThresholdRoutesToClarification(t *testing.T) {
	// A high threshold forces even a clear policy query below the line
	router := NewQueryRouter(0.99)

	decision := router.Route(Query{ID: "q-low", RawText: "What is the visitor policy?"})
	assert.Equal(t, IntentUnknown, decision.Intent)
	assert.Equal(t, AgentClarification, decision.SelectedAgent)
	assert.Less(t, decision.Confidence, 0.99)
}

func TestQueryRouterSingleKeywordNeverCertain(t *testing.T) {
	router := NewQueryRouter(0.4)

	// A lone strong keyword routes but cannot read as certainty
	decision := router.Route(Query{ID: "q-1", RawText: "What is the visitor policy?"})
	assert.Equal(t, IntentPolicyInterpretation, decision.Intent)
	assert.Less(t, decision.Confidence, 1.0)
	assert.GreaterOrEqual(t, decision.Confidence, 0.4)

	// A lone weak keyword stays below the default threshold
	weak := router.Route(Query{ID: "q-2", RawText: "just one rule here"})
	assert.Equal(t, IntentUnknown, weak.Intent)
	assert.Equal(t, AgentClarification, weak.SelectedAgent)
	assert.Less(t, weak.Confidence, 0.4)
}

func TestQueryRouterRepeatedKeywordCountedOnce(t *testing.T) {
	router := NewQueryRouter(0.0)

	single := router.Route(Query{ID: "a", RawText: "policy"})
	repeated := router.Route(Query{ID: "a", RawText: "policy policy policy"})
	assert.Equal(t, single.Confidence, repeated.Confidence,
		"duplicate tokens must not inflate confidence")
}

func TestQueryRouterConfidenceAboveThresholdForStrongSignal(t *testing.T) {
	router := NewQueryRouter(0.4)

	decision := router.Route(Query{
		ID:      "q-strong",
		RawText: "Explain the HIPAA compliance policy requirements for insurance coverage",
	})
	assert.Equal(t, IntentPolicyInterpretation, decision.Intent)
	assert.GreaterOrEqual(t, decision.Confidence, 0.4)
}
