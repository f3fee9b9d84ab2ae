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

// Package main is the entry point for the PolicyCopilot service.
//
// PolicyCopilot answers healthcare policy questions over an internal
// document corpus. Each query flows through:
// - Input guardrails (size, injection, and PII screening with redaction)
// - Intent routing to a specialist agent (policy, workflow, or exception)
// - Retrieval-augmented generation against the embedded vector store
// - Output guardrails (PII redaction and unsupported-claim grading)
// - Evaluation scoring and an append-only audit trail
//
// Usage:
//
//	./copilot
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	CONFIG_PATH - YAML configuration file (optional)
//	DATABASE_URL - PostgreSQL audit sink (optional)
//	REDIS_ADDR - retrieval cache address (optional)
//	LLM_PROVIDER - "ollama", "bedrock", or "mock" (optional)
//	OLLAMA_ENDPOINT - Ollama endpoint URL (optional)
//	BEDROCK_REGION - AWS Bedrock region (optional)
package main

import (
	"policycopilot/platform/orchestrator"
)

func main() {
	orchestrator.Run()
}
