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
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline settings. Values come from defaults, then an
// optional YAML file, then environment overrides, in that order.
type Config struct {
	ListenAddr string           `yaml:"listen_addr"`
	Router     RouterConfig     `yaml:"router"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Agents     AgentsConfig     `yaml:"agents"`
	LLM        LLMConfig        `yaml:"llm"`
	Cache      CacheConfig      `yaml:"cache"`
	Audit      AuditConfig      `yaml:"audit"`
}

// RouterConfig tunes intent classification
type RouterConfig struct {
	// ConfidenceThreshold below which intent resolves to unknown and the
	// query is routed to the clarification fallback.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// RetrievalConfig tunes the retrieval adapter and its vector store
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	MinRelevance   float64 `yaml:"min_relevance"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	PersistPath    string  `yaml:"persist_path"`
	Collection     string  `yaml:"collection"`
}

// GuardrailsConfig tunes input/output validation
type GuardrailsConfig struct {
	MaxInputChars int `yaml:"max_input_chars"`
}

// AgentsConfig tunes agent dispatch
type AgentsConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LLMConfig selects and tunes the language-model provider
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // "ollama", "bedrock", or "mock"
	OllamaEndpoint string  `yaml:"ollama_endpoint"`
	OllamaModel    string  `yaml:"ollama_model"`
	BedrockRegion  string  `yaml:"bedrock_region"`
	BedrockModel   string  `yaml:"bedrock_model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// CacheConfig tunes the optional retrieval cache
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	Password   string `yaml:"password"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// AuditConfig tunes the audit trail sink
type AuditConfig struct {
	DatabaseURL string `yaml:"database_url"`
	// RetentionDays documents how long records are kept. Deletion is an
	// administrative operation outside the request path; nothing in this
	// core deletes audit records.
	RetentionDays int `yaml:"retention_days"`
	QueueSize     int `yaml:"queue_size"`
	BatchSize     int `yaml:"batch_size"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		Router: RouterConfig{
			ConfidenceThreshold: 0.4,
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			MinRelevance:   0.3,
			TimeoutSeconds: 10,
			PersistPath:    "./data/policies",
			Collection:     "healthcare_policies",
		},
		Guardrails: GuardrailsConfig{
			MaxInputChars: 10000,
		},
		Agents: AgentsConfig{
			TimeoutSeconds: 60,
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "llama3.1",
			TimeoutSeconds: 60,
			MaxTokens:      1024,
			Temperature:    0.1,
		},
		Cache: CacheConfig{
			Enabled:    false,
			RedisAddr:  "localhost:6379",
			TTLSeconds: 300,
		},
		Audit: AuditConfig{
			RetentionDays: 365,
			QueueSize:     10000,
			BatchSize:     100,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults and applies
// environment overrides. An empty path loads defaults and environment only.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Audit.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Enabled = true
	}
	// Endpoint and region overrides adjust values only; the provider is
	// switched explicitly via LLM_PROVIDER or the config file.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.LLM.OllamaEndpoint = v
	}
	if v := os.Getenv("BEDROCK_REGION"); v != "" {
		c.LLM.BedrockRegion = v
	}
	if v := os.Getenv("ROUTER_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Router.ConfidenceThreshold = f
		}
	}
}

func (c *Config) validate() error {
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("router confidence_threshold must be in [0,1], got %f", c.Router.ConfidenceThreshold)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Guardrails.MaxInputChars <= 0 {
		return fmt.Errorf("guardrails max_input_chars must be positive, got %d", c.Guardrails.MaxInputChars)
	}
	if c.Agents.TimeoutSeconds <= 0 {
		return fmt.Errorf("agents timeout_seconds must be positive, got %d", c.Agents.TimeoutSeconds)
	}
	return nil
}
