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
	"fmt"
	"strings"
)

// Agent produces an answer for a routed query from retrieved policy context.
// Implementations return the answer text and a raw confidence in [0,1].
type Agent interface {
	Name() string
	Answer(ctx context.Context, query Query, passages []RetrievedPassage) (string, float64, error)
}

// roleInstructions are the per-agent system framings prepended to every
// generation prompt.
var roleInstructions = map[string]string{
	AgentPolicyInterpreter: "You are a healthcare policy interpreter. Answer the question using ONLY the policy excerpts provided. Cite the source document for each statement. If the excerpts do not cover the question, say so explicitly rather than guessing.",
	AgentWorkflowPlanner:   "You are a healthcare workflow planner. Produce a clear, ordered list of steps grounded ONLY in the policy excerpts provided. Name the source document behind each step. If the excerpts do not describe the workflow, say so explicitly.",
	AgentExceptionHandler:  "You are a healthcare exception handler. Explain how to resolve or escalate the described problem using ONLY the policy excerpts provided, including who to contact and under what conditions. If the excerpts do not cover this case, say so explicitly.",
}

// llmAgent answers with the configured language-model provider under a
// role-specific instruction.
type llmAgent struct {
	name     string
	provider LLMProvider
	options  QueryOptions
}

// NewPolicyInterpreterAgent answers policy interpretation questions
func NewPolicyInterpreterAgent(provider LLMProvider, options QueryOptions) Agent {
	return &llmAgent{name: AgentPolicyInterpreter, provider: provider, options: options}
}

// NewWorkflowPlannerAgent answers workflow and process questions
func NewWorkflowPlannerAgent(provider LLMProvider, options QueryOptions) Agent {
	return &llmAgent{name: AgentWorkflowPlanner, provider: provider, options: options}
}

// NewExceptionHandlerAgent answers escalation and exception questions
func NewExceptionHandlerAgent(provider LLMProvider, options QueryOptions) Agent {
	return &llmAgent{name: AgentExceptionHandler, provider: provider, options: options}
}

func (a *llmAgent) Name() string { return a.name }

func (a *llmAgent) Answer(ctx context.Context, query Query, passages []RetrievedPassage) (string, float64, error) {
	prompt := buildPrompt(a.name, query.RawText, passages)

	resp, err := a.provider.Generate(ctx, prompt, a.options)
	if err != nil {
		return "", 0, NewPipelineError(ReasonGenerationFailed, "llm generation failed", err)
	}

	answer := strings.TrimSpace(resp.Content)
	return answer, answerConfidence(answer, passages), nil
}

// buildPrompt assembles the role instruction, numbered policy excerpts, and
// the question into a single generation prompt.
func buildPrompt(agentName, question string, passages []RetrievedPassage) string {
	var b strings.Builder
	b.WriteString(roleInstructions[agentName])
	b.WriteString("\n\nPolicy excerpts:\n")

	if len(passages) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s, relevance %.2f) %s\n", i+1, p.SourceDocument, p.RelevanceScore, p.Excerpt)
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// answerConfidence derives a confidence from the retrieved context: the
// mean passage relevance, boosted when context is plentiful and when the
// answer names its sources, capped at 0.95. No context means no confidence.
func answerConfidence(answer string, passages []RetrievedPassage) float64 {
	if len(passages) == 0 || answer == "" {
		return 0
	}

	var sum float64
	for _, p := range passages {
		sum += p.RelevanceScore
	}
	confidence := sum / float64(len(passages))

	if len(passages) >= 3 {
		confidence += 0.05
	}
	if citesSources(answer, passages) {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return clamp01(confidence)
}

// citesSources reports whether the answer mentions any retrieved document
func citesSources(answer string, passages []RetrievedPassage) bool {
	lower := strings.ToLower(answer)
	for _, p := range passages {
		if p.SourceDocument != "" && strings.Contains(lower, strings.ToLower(p.SourceDocument)) {
			return true
		}
	}
	return false
}

// clarificationAgent answers unknown-intent queries with a canned request
// for more detail. It never calls the language model.
type clarificationAgent struct{}

// NewClarificationAgent creates the fallback agent for ambiguous queries
func NewClarificationAgent() Agent {
	return clarificationAgent{}
}

func (clarificationAgent) Name() string { return AgentClarification }

func (clarificationAgent) Answer(ctx context.Context, query Query, passages []RetrievedPassage) (string, float64, error) {
	return "I couldn't determine what kind of policy question this is. Could you rephrase it, mentioning whether you need a policy interpretation, a workflow or process, or help with an exception or escalation?", 0, nil
}
