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

import "fmt"

// ReasonCode is a stable, caller-facing failure or recovery code. Callers
// see only the code and a human-readable message, never internal detail.
type ReasonCode string

const (
	// ReasonRoutingAmbiguous: intent confidence fell below threshold; the
	// query was answered with a clarification request, not an error.
	ReasonRoutingAmbiguous ReasonCode = "ROUTING_AMBIGUOUS"

	// ReasonRetrievalUnavailable: the vector store was unreachable; the
	// pipeline proceeded with empty context and flagged the answer
	// ungrounded.
	ReasonRetrievalUnavailable ReasonCode = "RETRIEVAL_UNAVAILABLE"

	// ReasonGenerationTimeout: the language-model call exceeded its bound;
	// the dispatch was converted into a degraded response.
	ReasonGenerationTimeout ReasonCode = "GENERATION_TIMEOUT"

	// ReasonGenerationFailed: the language-model call failed outright.
	ReasonGenerationFailed ReasonCode = "GENERATION_FAILED"

	// ReasonGuardrailRejection: critical input or output risk; the request
	// was refused and no partial answer leaks.
	ReasonGuardrailRejection ReasonCode = "GUARDRAIL_REJECTION"

	// ReasonAuditWriteFailure: the audit sink was unavailable. Never
	// surfaced on the user-facing path; logged for operator visibility.
	ReasonAuditWriteFailure ReasonCode = "AUDIT_WRITE_FAILURE"

	// ReasonAgentUnavailable: the routing decision named an agent missing
	// from the registry.
	ReasonAgentUnavailable ReasonCode = "AGENT_UNAVAILABLE"
)

// PipelineError pairs a stable reason code with a human-readable message
type PipelineError struct {
	Code    ReasonCode
	Message string
	err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.err
}

// NewPipelineError wraps err under a stable reason code
func NewPipelineError(code ReasonCode, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, err: err}
}
