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

// Package orchestrator implements the PolicyCopilot query orchestration and
// safety pipeline: intent routing, agent dispatch with retrieval-augmented
// generation, input/output guardrails, RAG quality evaluation, and an
// append-only audit trail.
//
// Each incoming query flows through the stages in order:
//
//	guardrails (input) -> router -> agent manager -> guardrails (output)
//	-> evaluation -> audit
//
// Every stage produces an immutable record linked by query ID; no stage
// mutates an earlier stage's output. Queries are processed independently,
// so a failure in one never affects others in flight.
package orchestrator
