package client

import (
	"context"
	"sync"

	"github.com/datastic/docsbuilder/pkg/config"
	"github.com/datastic/docsbuilder/pkg/llm"
)

type testReporter struct {
	mu       sync.Mutex
	messages []string
}

func (r *testReporter) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.GenerateRequest
	result   llm.Result
	models   []string
	err      error
}

func (f *fakeLLM) ListModels(_ context.Context, apiKey string) ([]string, error) {
	if f.err != nil {
		return []string{}, f.err
	}
	return f.models, nil
}

func (f *fakeLLM) GenerateCompletion(_ context.Context, request llm.GenerateRequest) llm.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	return f.result
}

func testSettings() *config.Settings {
	return &config.Settings{
		APIKey:            "sk-test",
		Model:             "gpt-4",
		MaxTokens:         500,
		Temperature:       0.5,
		DocumentationType: "docstrings",
	}
}
