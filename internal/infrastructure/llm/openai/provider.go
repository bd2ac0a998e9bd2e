package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 2
)

// OpenAIProvider はOpenAI APIプロバイダーの実装
// OpenAI互換API（DeepSeek等）もベースURLを変えて利用する
type OpenAIProvider struct {
	name            string
	apiKey          string
	model           string
	baseURL         string
	timeout         time.Duration
	maxRetries      int
	legacyMaxTokens bool // max_completion_tokens 非対応の互換APIでは max_tokens を送る
}

// NewOpenAIProvider は新しいOpenAIProviderを作成
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		name:       "openai",
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
	}
}

// NewCompatibleProvider はOpenAI互換APIのプロバイダーを作成
func NewCompatibleProvider(name, apiKey, model, baseURL string) *OpenAIProvider {
	p := NewOpenAIProvider(apiKey, model)
	p.name = name
	p.baseURL = baseURL
	p.legacyMaxTokens = true
	return p
}

// SetBaseURL はベースURLを設定（テスト用）
func (p *OpenAIProvider) SetBaseURL(url string) {
	p.baseURL = url
}

// SetTimeout はリクエストタイムアウトを設定
func (p *OpenAIProvider) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetMaxRetries はSDKの再試行回数を設定（0で再試行なし）
func (p *OpenAIProvider) SetMaxRetries(n int) {
	p.maxRetries = n
}

// Generate はLLM生成を実行
func (p *OpenAIProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	client := sdk.NewClient(
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(strings.TrimRight(p.baseURL, "/")+"/v1/"),
		option.WithRequestTimeout(p.timeout),
		option.WithMaxRetries(p.maxRetries),
	)

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(p.model),
		Messages:    p.convertMessages(req),
		Temperature: sdk.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		if p.legacyMaxTokens {
			params.MaxTokens = sdk.Int(int64(req.MaxTokens))
		} else {
			params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
		}
	}

	if req.JSONOutput {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("%s API error: %w", p.name, err)
	}

	// コンテンツ抽出
	var content, finishReason string
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
		finishReason = string(completion.Choices[0].FinishReason)
	}

	return llm.GenerateResponse{
		Content:      content,
		TokensUsed:   int(completion.Usage.TotalTokens),
		FinishReason: finishReason,
	}, nil
}

// Name はプロバイダー名を返す
func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("%s-%s", p.name, p.model)
}

// convertMessages はドメインメッセージをSDKのメッセージに変換
func (p *OpenAIProvider) convertMessages(req llm.GenerateRequest) []sdk.ChatCompletionMessageParamUnion {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	// システムプロンプトを最初に追加
	if req.SystemPrompt != "" {
		messages = append(messages, sdk.SystemMessage(req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleAssistant:
			messages = append(messages, sdk.AssistantMessage(msg.Content))
		case llm.RoleSystem:
			messages = append(messages, sdk.SystemMessage(msg.Content))
		default:
			messages = append(messages, sdk.UserMessage(msg.Content))
		}
	}

	return messages
}
