package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

// 分類結果の既定確信度
const (
	defaultConfidence  = 0.7
	fallbackConfidence = 0.4
)

// classification はLLMが返すJSONの形
type classification struct {
	Intent     string         `json:"intent"`
	Confidence *float64       `json:"confidence"`
	Reason     string         `json:"reason"`
	Fields     map[string]any `json:"fields"`
}

// LLMClassifier はLLMベースの意図分類器
type LLMClassifier struct {
	llmProvider llm.LLMProvider
}

// NewLLMClassifier は新しいLLMClassifierを作成
func NewLLMClassifier(llmProvider llm.LLMProvider) *LLMClassifier {
	return &LLMClassifier{
		llmProvider: llmProvider,
	}
}

// Classify は発話を分類
func (c *LLMClassifier) Classify(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	utterance := req.Utterance
	if utterance == "" {
		utterance = t.UserMessage()
	}

	resp, err := c.llmProvider.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: c.buildSystemPrompt(),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: c.buildUserPrompt(utterance, req)},
		},
		MaxTokens:   400,
		Temperature: 0.0, // 低温度で安定した分類
		JSONOutput:  true,
	})
	if err != nil {
		return intent.Decision{}, fmt.Errorf("LLM classification failed: %w", err)
	}

	return c.parseDecision(resp.Content), nil
}

// buildSystemPrompt は分類用のシステムプロンプトを構築
func (c *LLMClassifier) buildSystemPrompt() string {
	return `You classify messages sent to a house design assistant. Return JSON only.

Labels:
- ADD_ROOM: the user wants one or more new rooms
- REMOVE_ROOM: the user wants to delete an existing room
- UPDATE_ROOM: the user wants to change the dimensions of an existing room
- SET_BUDGET: the user states or changes their budget
- ASK_QUESTION: a design, material, cost or code question
- OTHER: greetings, thanks, anything else

Schema:
{"intent": "<LABEL>", "confidence": 0.0-1.0, "reason": "<short>", "fields": {...}}

Fields per label (dimensions in feet, width then length, e.g. "12x14" is width 12, length 14):
- ADD_ROOM: {"name", "type", "width", "length", "floor"} or {"rooms": [{...}, ...]} for several rooms
- REMOVE_ROOM: {"room": "<reference as the user said it>"}
- UPDATE_ROOM: {"room": "<reference>", "width", "length"}
- SET_BUDGET: {"amount": <number, no currency symbol>}
- ASK_QUESTION: {"question": "<question>"}

Omit a field rather than guessing it. Never invent rooms the user did not ask for.
Copy room references exactly as the user wrote them; do not resolve them yourself.`
}

// buildUserPrompt は現在の状態と発話をまとめる
func (c *LLMClassifier) buildUserPrompt(utterance string, req intent.ClassifyRequest) string {
	var b strings.Builder

	if len(req.RoomNames) > 0 {
		fmt.Fprintf(&b, "Existing rooms: %s\n", strings.Join(req.RoomNames, ", "))
	} else {
		b.WriteString("Existing rooms: none\n")
	}
	if req.Budget != nil {
		fmt.Fprintf(&b, "Current budget: %.0f\n", *req.Budget)
	}
	if len(req.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, line := range req.History {
			fmt.Fprintf(&b, "%s\n", line)
		}
	}
	fmt.Fprintf(&b, "\nMessage: %s", utterance)

	return b.String()
}

// parseDecision はLLM応答からDecisionを抽出
func (c *LLMClassifier) parseDecision(content string) intent.Decision {
	raw := extractFirstJSONText(content)
	if raw == "" {
		return intent.NewDecision(intent.Other, fallbackConfidence, "LLM reply had no JSON, fallback to OTHER", nil)
	}

	var out classification
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return intent.NewDecision(intent.Other, fallbackConfidence, "LLM reply was not valid JSON, fallback to OTHER", nil)
	}

	label := intent.Intent(strings.ToUpper(strings.TrimSpace(out.Intent)))
	if !label.IsValid() {
		return intent.NewDecision(intent.Other, fallbackConfidence,
			fmt.Sprintf("Unknown label %q, fallback to OTHER", out.Intent), nil)
	}

	confidence := defaultConfidence
	if out.Confidence != nil && *out.Confidence >= 0 && *out.Confidence <= 1 {
		confidence = *out.Confidence
	}

	reason := fmt.Sprintf("LLM classified as %s", label)
	if out.Reason != "" {
		reason = fmt.Sprintf("%s: %s", reason, out.Reason)
	}

	return intent.NewDecision(label, confidence, reason, out.Fields)
}

// extractFirstJSONText は応答中の最初のJSONオブジェクトを切り出す
// コードフェンスや前置きの文章は無視する
func extractFirstJSONText(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
