package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

// ErrEmptyReply はLLMが空の応答を返した場合のエラー
var ErrEmptyReply = errors.New("empty reply from llm")

const consultantPrompt = `You are a residential design consultant for home construction in Montreal, Quebec.

Response style:
- Talk like a face-to-face consultation: friendly, professional, concrete.
- Never format the reply as an e-mail (no greetings like "Dear", no sign-off, no signature).
- Prefer short paragraphs; use bullet points only when they help.

Topics you can cover: design styles, materials and finishes, Quebec building practice,
cold-climate considerations, cost-effective choices.

The current floorplan summary is provided for context. Do not invent rooms that are not in it
and do not claim to have changed the floorplan; changes only happen when the user asks for them.`

// AnswerContext は回答生成に渡す会話コンテキスト
type AnswerContext struct {
	History []llm.Message // 直近の会話（古い順）
	Summary string        // 現在の間取り・費用の要約
}

// Designer は会話・意図判定を担当するエンティティ
type Designer struct {
	llmProvider    llm.LLMProvider
	classifier     Classifier
	ruleDictionary RuleDictionary
}

// NewDesigner は新しいDesignerを作成
func NewDesigner(
	llmProvider llm.LLMProvider,
	classifier Classifier,
	ruleDictionary RuleDictionary,
) *Designer {
	return &Designer{
		llmProvider:    llmProvider,
		classifier:     classifier,
		ruleDictionary: ruleDictionary,
	}
}

// DecideAction は意図判定（4段階優先順位）
func (d *Designer) DecideAction(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	// 優先度1: 明示コマンド
	if decision, ok := parseExplicitCommand(t.UserMessage()); ok {
		return decision, nil
	}

	// 優先度2: ルール辞書
	if d.ruleDictionary != nil {
		if decision, matched := d.ruleDictionary.Match(t); matched {
			return decision, nil
		}
	}

	// 優先度3: 分類器（LLM）
	decision, err := d.classifier.Classify(ctx, t, req)
	if err != nil {
		if ctx.Err() != nil {
			return intent.Decision{}, ctx.Err()
		}
		// 優先度4: 安全側フォールバック
		return intent.NewDecision(intent.Other, 0.5, "Classifier failed, fallback to OTHER", nil), nil
	}

	return decision, nil
}

// Answer は設計相談・質問に回答
func (d *Designer) Answer(ctx context.Context, t task.Task, question string, ac AnswerContext) (string, error) {
	if strings.TrimSpace(question) == "" {
		question = t.UserMessage()
	}

	messages := make([]llm.Message, 0, len(ac.History)+1)
	messages = append(messages, ac.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Current floorplan:\n%s\n\nQuestion: %s", ac.Summary, question),
	})

	resp, err := d.llmProvider.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: consultantPrompt,
		Messages:     messages,
		MaxTokens:    2048,
		Temperature:  0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyReply
	}

	return resp.Content, nil
}
