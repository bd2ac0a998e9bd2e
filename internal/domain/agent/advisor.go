package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

const advisorPrompt = `You are a residential design consultant helping a client bring a house design back under budget.

Speak naturally, as in a face-to-face meeting. No e-mail formatting, no signature.
Give 2-3 specific, actionable changes. For each one state:
- what to change (name the room)
- the approximate saving, using the rate per square foot given
- the impact on the design

Only suggest changes; never claim they have been applied.`

// SavingsRequest は予算超過時の節約提案に渡す入力
type SavingsRequest struct {
	Rooms    []floorplan.Room
	Estimate cost.Estimate
	Status   cost.BudgetStatus
	Currency string
}

// Advisor は予算超過時の節約提案を担当するエンティティ
type Advisor struct {
	llmProvider llm.LLMProvider
}

// NewAdvisor は新しいAdvisorを作成
func NewAdvisor(llmProvider llm.LLMProvider) *Advisor {
	return &Advisor{
		llmProvider: llmProvider,
	}
}

// SuggestSavings は節約提案を生成（応答はそのまま返す）
func (a *Advisor) SuggestSavings(ctx context.Context, req SavingsRequest) (string, error) {
	if !req.Status.IsOver() {
		return "", fmt.Errorf("savings requested while budget status is %s", req.Status.Status)
	}

	resp, err := a.llmProvider.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: advisorPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildSavingsPrompt(req)},
		},
		MaxTokens:   1024,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate savings suggestions: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyReply
	}

	return resp.Content, nil
}

// buildSavingsPrompt は現状の数値を列挙したプロンプトを構築
func buildSavingsPrompt(req SavingsRequest) string {
	currency := req.Currency
	if currency == "" {
		currency = cost.DefaultCurrency
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Estimated cost: %.2f %s\n", req.Estimate.TotalCost, currency)
	fmt.Fprintf(&b, "Budget: %.2f %s\n", req.Status.Budget, currency)
	fmt.Fprintf(&b, "Over budget by: %.2f %s (%.1f%%)\n", req.Status.Delta, currency, req.Status.DeltaPct)
	fmt.Fprintf(&b, "Rate: %.2f %s per sq ft\n", req.Estimate.RatePerArea, currency)
	fmt.Fprintf(&b, "Total area: %.0f sq ft\n\nRooms:\n", req.Estimate.TotalArea)

	for _, r := range req.Rooms {
		fmt.Fprintf(&b, "- %s (%s, floor %d): %gx%g ft, %.0f sq ft\n",
			r.Name, r.Type, r.Floor, r.Width, r.Length, r.Area())
	}

	return b.String()
}
