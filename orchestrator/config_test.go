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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 0.4, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 10000, cfg.Guardrails.MaxInputChars)
	assert.Equal(t, 365, cfg.Audit.RetentionDays)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
router:
  confidence_threshold: 0.6
retrieval:
  top_k: 3
llm:
  provider: mock
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 0.6, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	// Untouched sections keep their defaults
	assert.Equal(t, 10000, cfg.Guardrails.MaxInputChars)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ROUTER_CONFIDENCE_THRESHOLD", "0.55")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 0.55, cfg.Router.ConfidenceThreshold)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
}

func TestLoadConfigEnvProviderSelection(t *testing.T) {
	// Endpoint and region values alone must not switch the provider
	t.Setenv("OLLAMA_ENDPOINT", "http://ollama:11434")
	t.Setenv("BEDROCK_REGION", "us-west-2")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider, "provider stays at its default")
	assert.Equal(t, "http://ollama:11434", cfg.LLM.OllamaEndpoint)
	assert.Equal(t, "us-west-2", cfg.LLM.BedrockRegion)

	// Only LLM_PROVIDER switches the provider
	t.Setenv("LLM_PROVIDER", "bedrock")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "bedrock", cfg.LLM.Provider)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  confidence_threshold: 1.5\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
