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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// QueryOptions tunes a single generation call
type QueryOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// LLMResponse is the normalized result of a generation call
type LLMResponse struct {
	Content      string
	Model        string
	TokensUsed   int
	ResponseTime time.Duration
}

// LLMProvider abstracts a language-model backend. Agents depend only on
// this interface; the concrete provider is selected from configuration.
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error)
	IsHealthy() bool
}

// NewLLMProviderFromConfig selects and builds the configured provider
func NewLLMProviderFromConfig(cfg LLMConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaProvider(cfg.OllamaEndpoint, cfg.OllamaModel, cfg.TimeoutSeconds), nil
	case "bedrock":
		return NewBedrockProvider(cfg.BedrockRegion, cfg.BedrockModel)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// OllamaProvider calls a local Ollama server over its HTTP API
type OllamaProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaProvider creates an Ollama-backed provider
func NewOllamaProvider(endpoint, model string, timeoutSeconds int) *OllamaProvider {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &OllamaProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": options.Temperature,
			"num_predict": options.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	var ollamaResp struct {
		Response string `json:"response"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	return &LLMResponse{
		Content:      ollamaResp.Response,
		Model:        ollamaResp.Model,
		TokensUsed:   len(prompt) / 4, // rough estimate, ollama reports none
		ResponseTime: time.Since(start),
	}, nil
}

func (p *OllamaProvider) IsHealthy() bool { return p.endpoint != "" }

// BedrockProvider calls AWS Bedrock (Anthropic model family) using the AWS
// SDK v2, which handles Signature V4 authentication via IAM roles.
type BedrockProvider struct {
	client *bedrockruntime.Client
	region string
	model  string
}

// NewBedrockProvider creates a Bedrock-backed provider. Returns an error
// when AWS config loading fails rather than silently degrading.
func NewBedrockProvider(region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if model == "" {
		model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Bedrock (region %s): %w", region, err)
	}

	return &BedrockProvider{
		client: bedrockruntime.NewFromConfig(awsCfg),
		region: region,
		model:  model,
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Generate(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error) {
	start := time.Now()

	model := options.Model
	if model == "" {
		model = p.model
	}

	requestJSON, err := json.Marshal(map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        options.MaxTokens,
		"temperature":       options.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock request: %w", err)
	}

	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock API error: %w", err)
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode bedrock response: %w", err)
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}

	return &LLMResponse{
		Content:      content,
		Model:        model,
		TokensUsed:   resp.Usage.InputTokens + resp.Usage.OutputTokens,
		ResponseTime: time.Since(start),
	}, nil
}

func (p *BedrockProvider) IsHealthy() bool { return p.region != "" }

// MockProvider returns canned answers for tests and local development
type MockProvider struct {
	// GenerateFunc, when set, overrides the canned behavior
	GenerateFunc func(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error)
}

// NewMockProvider creates a provider that echoes a canned answer
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Generate(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error) {
	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, prompt, options)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &LLMResponse{
		Content: "Based on the provided policy context, the relevant guidance is summarized above.",
		Model:   "mock",
	}, nil
}

func (p *MockProvider) IsHealthy() bool { return true }
