package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

func overBudgetRequest() SavingsRequest {
	rooms := []floorplan.Room{
		{Name: "Kitchen", Type: "kitchen", Width: 12, Length: 14, Floor: 1},
		{Name: "Dining", Type: "dining", Width: 10, Length: 12, Floor: 1},
	}
	est := cost.Compute(rooms, 350)
	budget := 90000.0
	return SavingsRequest{
		Rooms:    rooms,
		Estimate: est,
		Status:   cost.Compare(est, &budget),
		Currency: "CAD",
	}
}

func TestAdvisorSuggestSavings(t *testing.T) {
	suggestions := "1. Shrink the dining room to 10x10 to save about 7,000 CAD."
	provider := &mockLLMProvider{
		generateFunc: func(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
			return llm.GenerateResponse{Content: suggestions}, nil
		},
	}
	advisor := NewAdvisor(provider)

	got, err := advisor.SuggestSavings(context.Background(), overBudgetRequest())
	if err != nil {
		t.Fatalf("SuggestSavings failed: %v", err)
	}

	if got != suggestions {
		t.Errorf("Suggestions should be passed through unmodified, got: %s", got)
	}

	prompt := provider.lastRequest.Messages[0].Content
	for _, want := range []string{"100800.00 CAD", "90000.00 CAD", "10800.00 CAD", "Kitchen", "Dining"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt should contain %q:\n%s", want, prompt)
		}
	}
}

func TestAdvisorSuggestSavings_NotOverBudget(t *testing.T) {
	provider := &mockLLMProvider{}
	advisor := NewAdvisor(provider)

	req := overBudgetRequest()
	req.Status = cost.Compare(req.Estimate, nil)

	if _, err := advisor.SuggestSavings(context.Background(), req); err == nil {
		t.Error("Expected error when not over budget")
	}
	if provider.calls != 0 {
		t.Error("LLM should not be called when not over budget")
	}
}

func TestAdvisorSuggestSavings_ProviderError(t *testing.T) {
	provider := &mockLLMProvider{
		generateFunc: func(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
			return llm.GenerateResponse{}, errors.New("rate limited")
		},
	}
	advisor := NewAdvisor(provider)

	_, err := advisor.SuggestSavings(context.Background(), overBudgetRequest())
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
}
