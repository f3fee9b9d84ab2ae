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
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// PIIType categorizes personally identifiable / protected health information
type PIIType string

const (
	PIITypeSSN        PIIType = "ssn"
	PIITypeMRN        PIIType = "mrn"
	PIITypeDOB        PIIType = "dob"
	PIITypePhone      PIIType = "phone"
	PIITypeEmail      PIIType = "email"
	PIITypeCreditCard PIIType = "credit_card"
)

// PIISeverity grades how damaging a leak of this PII type is
type PIISeverity string

const (
	PIISeverityLow      PIISeverity = "low"
	PIISeverityMedium   PIISeverity = "medium"
	PIISeverityHigh     PIISeverity = "high"
	PIISeverityCritical PIISeverity = "critical"
)

var piiSeverityRank = map[PIISeverity]int{
	PIISeverityLow:      1,
	PIISeverityMedium:   2,
	PIISeverityHigh:     3,
	PIISeverityCritical: 4,
}

// PIIMatch is a single detection with its span in the scanned text
type PIIMatch struct {
	Type       PIIType
	Value      string
	Severity   PIISeverity
	Confidence float64
	Start      int
	End        int
}

// piiPattern pairs a compiled regex with an optional validator that rejects
// structural false positives (bad SSN areas, failed Luhn checks).
type piiPattern struct {
	piiType   PIIType
	pattern   *regexp.Regexp
	severity  PIISeverity
	validator func(match, context string) (bool, float64)
}

// PIIDetector scans text for healthcare PII/PHI patterns. Patterns are
// ordered by severity so overlapping spans resolve to the stronger type
// (an SSN also matches the phone pattern; the SSN wins).
type PIIDetector struct {
	patterns      []*piiPattern
	contextWindow int
	minConfidence float64
}

// NewPIIDetector creates a detector with the healthcare pattern set
func NewPIIDetector() *PIIDetector {
	return &PIIDetector{
		contextWindow: 50,
		minConfidence: 0.5,
		patterns: []*piiPattern{
			{
				piiType:   PIITypeSSN,
				pattern:   regexp.MustCompile(`\b\d{3}[- ]?\d{2}[- ]?\d{4}\b`),
				severity:  PIISeverityCritical,
				validator: validateSSN,
			},
			{
				piiType:   PIITypeCreditCard,
				pattern:   regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
				severity:  PIISeverityCritical,
				validator: validateCreditCard,
			},
			{
				piiType:  PIITypeMRN,
				pattern:  regexp.MustCompile(`(?i)\b(?:MRN|medical record number)[:#\s]+\d{6,10}\b`),
				severity: PIISeverityCritical,
			},
			{
				piiType:   PIITypeDOB,
				pattern:   regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12][0-9]|3[01])[/-](?:19|20)\d{2}\b`),
				severity:  PIISeverityHigh,
				validator: validateDateOfBirth,
			},
			{
				piiType:   PIITypePhone,
				pattern:   regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b|\(\d{3}\)\s?\d{3}[-.]?\d{4}`),
				severity:  PIISeverityMedium,
				validator: validatePhone,
			},
			{
				piiType:   PIITypeEmail,
				pattern:   regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
				severity:  PIISeverityMedium,
				validator: validateEmail,
			},
		},
	}
}

// Detect scans text and returns non-overlapping matches ordered by start
// position. When spans overlap, the higher-severity type is kept.
func (d *PIIDetector) Detect(text string) []PIIMatch {
	var matches []PIIMatch

	for _, p := range d.patterns {
		for _, loc := range p.pattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]

			confidence := 1.0
			if p.validator != nil {
				ok, c := p.validator(value, d.contextAround(text, loc[0], loc[1]))
				if !ok {
					continue
				}
				confidence = c
			}
			if confidence < d.minConfidence {
				continue
			}

			matches = append(matches, PIIMatch{
				Type:       p.piiType,
				Value:      value,
				Severity:   p.severity,
				Confidence: confidence,
				Start:      loc[0],
				End:        loc[1],
			})
		}
	}

	return dedupeOverlapping(matches)
}

// Redact replaces every detected span with a [REDACTED_<TYPE>] placeholder.
// Redaction always succeeds; the returned matches record what was removed.
func (d *PIIDetector) Redact(text string) (string, []PIIMatch) {
	matches := d.Detect(text)
	if len(matches) == 0 {
		return text, nil
	}

	// Replace back-to-front so earlier spans keep their offsets
	redacted := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		placeholder := fmt.Sprintf("[REDACTED_%s]", strings.ToUpper(string(m.Type)))
		redacted = redacted[:m.Start] + placeholder + redacted[m.End:]
	}
	return redacted, matches
}

// MaxSeverity returns the most severe detection, or "" when none matched
func MaxSeverity(matches []PIIMatch) PIISeverity {
	var max PIISeverity
	for _, m := range matches {
		if piiSeverityRank[m.Severity] > piiSeverityRank[max] {
			max = m.Severity
		}
	}
	return max
}

func (d *PIIDetector) contextAround(text string, start, end int) string {
	lo := start - d.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + d.contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// dedupeOverlapping keeps the higher-severity match when spans overlap.
// Patterns were scanned in severity order, so on equal severity the
// earlier-scanned type wins.
func dedupeOverlapping(matches []PIIMatch) []PIIMatch {
	if len(matches) <= 1 {
		return matches
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := piiSeverityRank[matches[i].Severity], piiSeverityRank[matches[j].Severity]
		if ri != rj {
			return ri > rj
		}
		return matches[i].Start < matches[j].Start
	})

	var kept []PIIMatch
	for _, m := range matches {
		overlaps := false
		for _, k := range kept {
			if m.Start < k.End && k.Start < m.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// =============================================================================
// Validators - each returns (isValid, confidence)
// =============================================================================

// validateSSN rejects structurally invalid US Social Security Numbers:
// area 000/666/900+, zero group, or zero serial.
func validateSSN(match, context string) (bool, float64) {
	clean := digitsOnly(match)
	if len(clean) != 9 {
		return false, 0
	}

	area, _ := strconv.Atoi(clean[0:3])
	group, _ := strconv.Atoi(clean[3:5])
	serial, _ := strconv.Atoi(clean[5:9])

	if area == 0 || area == 666 || area >= 900 || group == 0 || serial == 0 {
		return false, 0
	}

	contextLower := strings.ToLower(context)
	for _, indicator := range []string{"ssn", "social security", "ss#", "taxpayer", "tax id"} {
		if strings.Contains(contextLower, indicator) {
			return true, 0.95
		}
	}
	// Bare 9-digit runs without separators are usually something else
	if !strings.ContainsAny(match, "- ") {
		return true, 0.55
	}
	return true, 0.8
}

// validateCreditCard requires the Luhn checksum to pass
func validateCreditCard(match, context string) (bool, float64) {
	clean := digitsOnly(match)
	if len(clean) != 16 || !luhnCheck(clean) {
		return false, 0
	}
	return true, 0.9
}

// validateDateOfBirth treats any plausible date as PII only with
// birth-related context nearby; a bare date scores below threshold.
func validateDateOfBirth(match, context string) (bool, float64) {
	contextLower := strings.ToLower(context)
	for _, indicator := range []string{"dob", "date of birth", "birth", "born"} {
		if strings.Contains(contextLower, indicator) {
			return true, 0.95
		}
	}
	return true, 0.4
}

// validatePhone rejects repeated-digit sequences and non-phone digit counts
func validatePhone(match, context string) (bool, float64) {
	digits := digitsOnly(match)
	if len(digits) < 10 || len(digits) > 11 {
		return false, 0
	}
	if isRepeatedDigits(digits) {
		return false, 0
	}
	return true, 0.75
}

// validateEmail applies basic structural checks beyond the regex
func validateEmail(match, context string) (bool, float64) {
	at := strings.LastIndex(match, "@")
	if at < 1 {
		return false, 0
	}
	domain := match[at+1:]
	if !strings.Contains(domain, ".") || strings.Contains(match, "..") {
		return false, 0
	}
	if strings.Contains(strings.ToLower(domain), "example.com") {
		return true, 0.5
	}
	return true, 0.9
}

// luhnCheck performs the Luhn checksum used by payment card numbers
func luhnCheck(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if alternate {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alternate = !alternate
	}
	return sum%10 == 0
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isRepeatedDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
