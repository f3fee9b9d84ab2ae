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
	"errors"
	"fmt"
	"sync"
	"time"

	"policycopilot/platform/shared/logger"
)

// AgentManager owns the agent registry and executes routed queries under a
// per-dispatch timeout. Dispatch never returns an error: every failure mode
// is converted into a degraded AgentResponse with a reason code.
type AgentManager struct {
	mu        sync.RWMutex
	agents    map[string]Agent
	retriever *RetrievalAdapter
	timeout   time.Duration
	log       *logger.Logger
}

// NewAgentManager creates a manager with an empty registry
func NewAgentManager(retriever *RetrievalAdapter, cfg AgentsConfig) *AgentManager {
	return &AgentManager{
		agents:    make(map[string]Agent),
		retriever: retriever,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:       logger.New("agent-manager"),
	}
}

// Register adds an agent to the registry, replacing any same-named entry
func (m *AgentManager) Register(agent Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.Name()] = agent
}

// RegisteredAgents returns the names currently in the registry
func (m *AgentManager) RegisteredAgents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.agents))
	for name := range m.agents {
		names = append(names, name)
	}
	return names
}

// Dispatch retrieves context and executes the selected agent. The returned
// response is always well-formed; timeouts, missing agents, and generation
// failures all degrade into Failed responses with confidence zero.
func (m *AgentManager) Dispatch(ctx context.Context, decision RoutingDecision, query Query) AgentResponse {
	m.mu.RLock()
	agent, ok := m.agents[decision.SelectedAgent]
	m.mu.RUnlock()

	if !ok {
		m.log.Error(query.ID, "routed to unregistered agent", map[string]interface{}{
			"agent": decision.SelectedAgent,
		})
		return AgentResponse{
			QueryID:       query.ID,
			AgentName:     decision.SelectedAgent,
			Failed:        true,
			FailureReason: ReasonAgentUnavailable,
		}
	}

	// The clarification fallback needs no policy context
	var passages []RetrievedPassage
	if decision.Intent != IntentUnknown {
		passages = m.retriever.Retrieve(ctx, query.ID, query.RawText)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type outcome struct {
		answer     string
		confidence float64
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		answer, confidence, err := agent.Answer(dispatchCtx, query, passages)
		done <- outcome{answer, confidence, err}
	}()

	select {
	case <-dispatchCtx.Done():
		m.log.Warn(query.ID, "agent dispatch timed out", map[string]interface{}{
			"agent":       agent.Name(),
			"timeout_sec": m.timeout.Seconds(),
		})
		return AgentResponse{
			QueryID:       query.ID,
			AgentName:     agent.Name(),
			PassagesUsed:  passages,
			Failed:        true,
			FailureReason: ReasonGenerationTimeout,
			Ungrounded:    len(passages) == 0,
		}
	case out := <-done:
		if out.err != nil {
			reason := ReasonGenerationFailed
			var pe *PipelineError
			if errors.As(out.err, &pe) {
				reason = pe.Code
			}
			if errors.Is(out.err, context.DeadlineExceeded) {
				reason = ReasonGenerationTimeout
			}
			m.log.Error(query.ID, fmt.Sprintf("agent generation failed: %v", out.err), map[string]interface{}{
				"agent": agent.Name(),
			})
			return AgentResponse{
				QueryID:       query.ID,
				AgentName:     agent.Name(),
				PassagesUsed:  passages,
				Failed:        true,
				FailureReason: reason,
				Ungrounded:    len(passages) == 0,
			}
		}

		return AgentResponse{
			QueryID:       query.ID,
			AgentName:     agent.Name(),
			AnswerText:    out.answer,
			PassagesUsed:  passages,
			RawConfidence: out.confidence,
			Ungrounded:    decision.Intent != IntentUnknown && len(passages) == 0,
		}
	}
}
