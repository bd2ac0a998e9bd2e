package agent

import (
	"context"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

// Mock LLMProvider
type mockLLMProvider struct {
	generateFunc func(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error)
	lastRequest  llm.GenerateRequest
	calls        int
}

func (m *mockLLMProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	m.lastRequest = req
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return llm.GenerateResponse{Content: "Mock response"}, nil
}

func (m *mockLLMProvider) Name() string {
	return "mock"
}

// Mock Classifier
type mockClassifier struct {
	classifyFunc func(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error)
	calls        int
}

func (m *mockClassifier) Classify(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	m.calls++
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, t, req)
	}
	return intent.NewDecision(intent.AskQuestion, 0.8, "Mock classification", nil), nil
}

// Mock RuleDictionary
type mockRuleDictionary struct {
	matchFunc func(t task.Task) (intent.Decision, bool)
}

func (m *mockRuleDictionary) Match(t task.Task) (intent.Decision, bool) {
	if m.matchFunc != nil {
		return m.matchFunc(t)
	}
	return intent.Decision{}, false
}

func newTask(message string) task.Task {
	return task.NewTask(task.NewJobID(), "20260301-cli-abcd1234", message, "cli")
}
