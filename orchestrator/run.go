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
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	"policycopilot/platform/connectors/chromem"
)

// Run is the exported entry point for the copilot service.
//
// It loads configuration, opens the vector store, builds the LLM provider
// and agent registry, wires the pipeline, and serves HTTP until the process
// exits.
//
// Environment variables used:
//   - PORT: HTTP server port
//   - CONFIG_PATH: YAML config file (optional)
//   - DATABASE_URL: PostgreSQL audit sink (optional)
//   - REDIS_ADDR: retrieval cache (optional)
//   - LLM_PROVIDER: "ollama", "bedrock", or "mock" (optional)
//   - OLLAMA_ENDPOINT / BEDROCK_REGION: provider connection values
func Run() {
	log.Println("Starting PolicyCopilot...")

	cfg, err := LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	metrics := NewMetricsCollector()

	store, err := chromem.NewStore(chromem.Config{
		PersistPath: cfg.Retrieval.PersistPath,
		Collection:  cfg.Retrieval.Collection,
	})
	if err != nil {
		log.Fatalf("vector store: %v", err)
	}
	searcher := NewChromemSearcher(store)

	provider, err := NewLLMProviderFromConfig(cfg.LLM)
	if err != nil {
		log.Fatalf("llm provider: %v", err)
	}
	log.Printf("LLM provider: %s", provider.Name())

	cache := NewQueryCache(cfg.Cache)
	if cache != nil {
		log.Printf("Retrieval cache enabled (%s, ttl %ds)", cfg.Cache.RedisAddr, cfg.Cache.TTLSeconds)
	}

	adapter := NewRetrievalAdapter(searcher, cache, metrics, cfg.Retrieval)

	options := QueryOptions{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature}
	manager := NewAgentManager(adapter, cfg.Agents)
	manager.Register(NewPolicyInterpreterAgent(provider, options))
	manager.Register(NewWorkflowPlannerAgent(provider, options))
	manager.Register(NewExceptionHandlerAgent(provider, options))
	manager.Register(NewClarificationAgent())

	audit := NewAuditLogger(cfg.Audit, metrics)
	defer audit.Close()

	pipeline := NewPipeline(
		NewQueryRouter(cfg.Router.ConfidenceThreshold),
		manager,
		NewGuardrailsEngine(cfg.Guardrails),
		NewEvaluationEngine(),
		audit,
		metrics,
	)

	server := NewServer(pipeline, audit, metrics, provider)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      c.Handler(server.Routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.Agents.TimeoutSeconds+30) * time.Second,
	}

	log.Printf("PolicyCopilot listening on %s", cfg.ListenAddr)
	log.Fatal(httpServer.ListenAndServe())
}
