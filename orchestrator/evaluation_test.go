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
)

func TestScoreMetricsInRange(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{
		{SourceDocument: "visitor_policy.md", Excerpt: "Visitors are permitted between morning and evening hours in general wards.", RelevanceScore: 0.9},
		{SourceDocument: "icu_policy.md", Excerpt: "The intensive care unit limits visitors to immediate family members.", RelevanceScore: 0.8},
	}

	score := e.Score(
		"Visitors are permitted during general ward hours, and the intensive care unit limits visitors to immediate family.",
		passages,
		"What is the visitor policy for the intensive care unit?",
	)

	for name, v := range map[string]float64{
		"faithfulness":      score.Faithfulness,
		"relevance":         score.Relevance,
		"context_precision": score.ContextPrecision,
		"context_recall":    score.ContextRecall,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestScoreGroundedAnswerScoresHigh(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{
		{Excerpt: "Prior authorization is required for all elective imaging procedures.", RelevanceScore: 0.95},
	}

	score := e.Score(
		"Prior authorization is required for all elective imaging procedures.",
		passages,
		"Is prior authorization required for elective imaging procedures?",
	)

	assert.GreaterOrEqual(t, score.Faithfulness, 0.8)
	assert.GreaterOrEqual(t, score.Relevance, 0.8)
	assert.GreaterOrEqual(t, score.ContextPrecision, 0.8)
	assert.GreaterOrEqual(t, score.ContextRecall, 0.8)
}

func TestScoreZeroPassages(t *testing.T) {
	e := NewEvaluationEngine()

	score := e.Score("I was unable to find relevant policy documents.", nil, "What is the refund policy?")
	assert.Equal(t, 0.0, score.Faithfulness)
	assert.Equal(t, 0.0, score.ContextPrecision)
	assert.Equal(t, 0.0, score.ContextRecall)
	assert.GreaterOrEqual(t, score.Relevance, 0.0)
}

func TestScoreEmptyAnswer(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{{Excerpt: "Some policy text here.", RelevanceScore: 0.5}}

	score := e.Score("", passages, "What is the policy?")
	assert.Equal(t, 0.0, score.Faithfulness)
	assert.Equal(t, 0.0, score.Relevance)
	assert.Equal(t, 0.0, score.ContextPrecision)
	assert.Equal(t, 0.5, score.ContextRecall)
}

func TestScoreShortAnswerPenalized(t *testing.T) {
	e := NewEvaluationEngine()
	query := "What is the discharge policy for weekend admissions exactly?"

	short := e.Score("discharge policy weekend admissions", nil, query)
	long := e.Score("The discharge policy for weekend admissions requires attending physician sign-off before noon.", nil, query)
	assert.Less(t, short.Relevance, long.Relevance)
}

func TestScoreIdempotent(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{
		{Excerpt: "Appeals must be filed within thirty days of the denial notice.", RelevanceScore: 0.85},
	}
	answer := "Appeals must be filed within thirty days of the denial notice."
	query := "How long do I have to file an appeal after a denial?"

	first := e.Score(answer, passages, query)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, e.Score(answer, passages, query))
	}
}

func TestContextPrecisionCountsUsedPassages(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{
		{Excerpt: "Referrals require primary care physician approval.", RelevanceScore: 0.9},
		{Excerpt: "Cafeteria hours run from six until twenty.", RelevanceScore: 0.4},
	}

	score := e.Score("Referrals require primary care physician approval.", passages, "Do referrals need approval?")
	assert.Equal(t, 0.5, score.ContextPrecision)
}

func TestContextRecallIsMeanRelevance(t *testing.T) {
	e := NewEvaluationEngine()
	passages := []RetrievedPassage{
		{Excerpt: "a b c", RelevanceScore: 1.0},
		{Excerpt: "d e f", RelevanceScore: 0.5},
	}

	score := e.Score("anything", passages, "anything")
	assert.InDelta(t, 0.75, score.ContextRecall, 1e-9)
}
