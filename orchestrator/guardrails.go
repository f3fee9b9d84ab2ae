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
	"regexp"
	"strings"

	"policycopilot/platform/shared/logger"
)

// injectionPatterns flag prompt-injection attempts in user input. Matching
// any of these is a critical finding.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions?|guidelines?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s`),
	regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`),
	regexp.MustCompile(`(?i)system\s*prompt`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)reveal\s+your\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)\b(drop|truncate|delete)\s+table\b`),
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
	regexp.MustCompile(`(?i)\b(api[_\s-]?key|access[_\s-]?token|password)\s*[:=]\s*\S`),
}

// absoluteClaimPatterns flag unhedged assertions in generated answers.
// Each match untraceable to retrieved context counts toward the
// hallucination risk grade.
var absoluteClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(always|never|all|every|none|guaranteed|definitely|certainly)\b`),
	regexp.MustCompile(`(?i)\bmust\s+(always|never)\b`),
	regexp.MustCompile(`(?i)\b(100%|zero\s+exceptions?)\b`),
}

// specificCountPattern flags precise figures (counts, percentages, dollar
// amounts) that invite false authority when not grounded in context.
var specificCountPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:%|percent|days?|hours?|dollars?|patients?|beds?|visits?)\b|\$\d+`)

// GuardrailsEngine validates queries before routing and answers before
// delivery. Input and output pass through independent checks; both always
// produce a verdict with SanitizedText set.
type GuardrailsEngine struct {
	maxInputChars int
	detector      *PIIDetector
	log           *logger.Logger
}

// NewGuardrailsEngine creates an engine with the given input size bound
func NewGuardrailsEngine(cfg GuardrailsConfig) *GuardrailsEngine {
	return &GuardrailsEngine{
		maxInputChars: cfg.MaxInputChars,
		detector:      NewPIIDetector(),
		log:           logger.New("guardrails"),
	}
}

// ValidateInput checks a raw query before routing. Critical-severity PII
// (SSN, credit card, MRN) escalates to critical risk and blocks the query;
// lesser PII is redacted and the sanitized text flows onward.
func (g *GuardrailsEngine) ValidateInput(queryID, text string) GuardrailVerdict {
	verdict := GuardrailVerdict{
		Stage:         StageInput,
		RiskLevel:     RiskNone,
		SanitizedText: text,
	}

	if strings.TrimSpace(text) == "" {
		verdict.Violations = append(verdict.Violations, ViolationEmptyInput)
		verdict.RiskLevel = RiskHigh
		return verdict
	}

	if len(text) > g.maxInputChars {
		verdict.Violations = append(verdict.Violations, ViolationOversizedInput)
		verdict.RiskLevel = RiskHigh
		verdict.SanitizedText = text[:g.maxInputChars]
		return verdict
	}

	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			verdict.Violations = append(verdict.Violations, ViolationInjection)
			verdict.RiskLevel = RiskCritical
			g.log.Warn(queryID, "prompt injection attempt blocked", nil)
			return verdict
		}
	}

	redacted, matches := g.detector.Redact(text)
	if len(matches) > 0 {
		verdict.Violations = append(verdict.Violations, ViolationPII)
		verdict.SanitizedText = redacted
		switch MaxSeverity(matches) {
		case PIISeverityCritical:
			verdict.RiskLevel = RiskCritical
		case PIISeverityHigh:
			verdict.RiskLevel = RiskMedium
		default:
			verdict.RiskLevel = RiskLow
		}
		g.log.Info(queryID, "input PII redacted", map[string]interface{}{
			"matches":   len(matches),
			"max_grade": string(MaxSeverity(matches)),
		})
	}

	return verdict
}

// ValidateOutput checks a generated answer before delivery. PII is always
// redacted and never fails the request; unsupported claims grade the
// hallucination risk, and high risk blocks delivery.
func (g *GuardrailsEngine) ValidateOutput(queryID, answer string, passages []RetrievedPassage) GuardrailVerdict {
	verdict := GuardrailVerdict{
		Stage:         StageOutput,
		RiskLevel:     RiskNone,
		SanitizedText: answer,
	}

	redacted, matches := g.detector.Redact(answer)
	if len(matches) > 0 {
		verdict.Violations = append(verdict.Violations, ViolationPII)
		verdict.SanitizedText = redacted
		verdict.RiskLevel = RiskLow
		g.log.Info(queryID, "output PII redacted", map[string]interface{}{
			"matches": len(matches),
		})
	}

	unsupported := countUnsupportedClaims(verdict.SanitizedText, passages)
	if unsupported > 0 {
		verdict.Violations = append(verdict.Violations, ViolationUnsupportedClaims)
		verdict.RiskLevel = maxRisk(verdict.RiskLevel, hallucinationRisk(unsupported))
	}

	return verdict
}

// countUnsupportedClaims counts absolute statements and specific figures in
// the answer that do not appear in any retrieved passage. With no passages
// at all, every such claim is unsupported.
func countUnsupportedClaims(answer string, passages []RetrievedPassage) int {
	var claims []string
	for _, p := range absoluteClaimPatterns {
		claims = append(claims, p.FindAllString(answer, -1)...)
	}
	claims = append(claims, specificCountPattern.FindAllString(answer, -1)...)
	if len(claims) == 0 {
		return 0
	}

	var context strings.Builder
	for _, p := range passages {
		context.WriteString(strings.ToLower(p.Excerpt))
		context.WriteByte(' ')
	}
	contextText := context.String()

	count := 0
	for _, claim := range claims {
		if !strings.Contains(contextText, strings.ToLower(strings.TrimSpace(claim))) {
			count++
		}
	}
	return count
}

// hallucinationRisk grades the unsupported-claim count:
// 1-2 low, 3-4 medium, 5 or more high.
func hallucinationRisk(unsupported int) RiskLevel {
	switch {
	case unsupported >= 5:
		return RiskHigh
	case unsupported >= 3:
		return RiskMedium
	case unsupported >= 1:
		return RiskLow
	default:
		return RiskNone
	}
}
