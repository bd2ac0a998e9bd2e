package claude

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultMaxTokens  = 1024
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 2
)

// ClaudeProvider はClaude APIプロバイダーの実装
type ClaudeProvider struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxRetries int
}

// NewClaudeProvider は新しいClaudeProviderを作成
func NewClaudeProvider(apiKey, model string) *ClaudeProvider {
	return &ClaudeProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
	}
}

// SetBaseURL はベースURLを設定（テスト用）
func (p *ClaudeProvider) SetBaseURL(url string) {
	p.baseURL = url
}

// SetTimeout はリクエストタイムアウトを設定
func (p *ClaudeProvider) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetMaxRetries はSDKの再試行回数を設定（0で再試行なし）
func (p *ClaudeProvider) SetMaxRetries(n int) {
	p.maxRetries = n
}

// Generate はLLM生成を実行
func (p *ClaudeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(strings.TrimRight(p.baseURL, "/")+"/"),
		option.WithRequestTimeout(p.timeout),
		option.WithMaxRetries(p.maxRetries),
	)

	// Claude APIはmax_tokensが必須
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Messages:    p.convertMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	}

	// システムプロンプト（メッセージ中のsystemロールも連結する）
	if system := p.systemPrompt(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("claude API error: %w", err)
	}

	// テキストブロックを連結
	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return llm.GenerateResponse{
		Content:      content.String(),
		TokensUsed:   int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		FinishReason: string(msg.StopReason),
	}, nil
}

// Name はプロバイダー名を返す
func (p *ClaudeProvider) Name() string {
	return fmt.Sprintf("claude-%s", p.model)
}

func (p *ClaudeProvider) systemPrompt(req llm.GenerateRequest) string {
	parts := make([]string, 0, 1)
	if req.SystemPrompt != "" {
		parts = append(parts, req.SystemPrompt)
	}
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// convertMessages はドメインメッセージをSDKのメッセージに変換（systemは除外）
func (p *ClaudeProvider) convertMessages(messages []llm.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}
