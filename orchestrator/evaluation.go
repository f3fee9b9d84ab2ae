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

// EvaluationEngine scores delivered answers against their retrieved context
// and the originating query. Scoring is pure and deterministic: the same
// inputs always produce the same EvaluationScore, and Score never fails.
type EvaluationEngine struct{}

// NewEvaluationEngine creates a scorer
func NewEvaluationEngine() *EvaluationEngine {
	return &EvaluationEngine{}
}

// Score computes the four RAG quality metrics, each in [0,1]. An answer
// produced with zero passages scores zero on faithfulness and the context
// metrics; relevance is still measured against the query.
func (e *EvaluationEngine) Score(answer string, passages []RetrievedPassage, queryText string) EvaluationScore {
	return EvaluationScore{
		Faithfulness:     faithfulness(answer, passages),
		Relevance:        relevance(answer, queryText),
		ContextPrecision: contextPrecision(answer, passages),
		ContextRecall:    contextRecall(passages),
	}
}

// faithfulness measures how much of the answer's vocabulary is grounded in
// the retrieved passages: |answer words ∩ context words| / |answer words|.
func faithfulness(answer string, passages []RetrievedPassage) float64 {
	answerWords := wordSet(answer)
	if len(answerWords) == 0 || len(passages) == 0 {
		return 0
	}

	contextWords := make(map[string]bool)
	for _, p := range passages {
		for w := range wordSet(p.Excerpt) {
			contextWords[w] = true
		}
	}

	grounded := 0
	for w := range answerWords {
		if contextWords[w] {
			grounded++
		}
	}
	return clamp01(float64(grounded) / float64(len(answerWords)))
}

// relevance measures how much of the query's vocabulary the answer covers,
// penalizing very short answers that cannot plausibly address the question.
func relevance(answer, queryText string) float64 {
	queryWords := wordSet(queryText)
	if len(queryWords) == 0 {
		return 0
	}
	answerWords := wordSet(answer)

	covered := 0
	for w := range queryWords {
		if answerWords[w] {
			covered++
		}
	}
	score := float64(covered) / float64(len(queryWords))

	if len(answer) < 50 {
		score *= 0.7
	}
	return clamp01(score)
}

// contextPrecision is the fraction of retrieved passages the answer
// actually drew on: a passage counts when more than 20% of its vocabulary
// appears in the answer.
func contextPrecision(answer string, passages []RetrievedPassage) float64 {
	if len(passages) == 0 {
		return 0
	}
	answerWords := wordSet(answer)

	used := 0
	for _, p := range passages {
		passageWords := wordSet(p.Excerpt)
		if len(passageWords) == 0 {
			continue
		}
		overlap := 0
		for w := range passageWords {
			if answerWords[w] {
				overlap++
			}
		}
		if float64(overlap)/float64(len(passageWords)) > 0.2 {
			used++
		}
	}
	return clamp01(float64(used) / float64(len(passages)))
}

// contextRecall approximates whether retrieval surfaced enough relevant
// material, as the mean relevance score of the retrieved set.
func contextRecall(passages []RetrievedPassage) float64 {
	if len(passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range passages {
		sum += p.RelevanceScore
	}
	return clamp01(sum / float64(len(passages)))
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(text) {
		if len(tok) > 2 {
			set[tok] = true
		}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
