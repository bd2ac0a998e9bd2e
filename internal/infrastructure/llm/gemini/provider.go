package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

// GeminiProvider はGoogle Gemini APIプロバイダーの実装
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string // 空ならSDKの既定
	timeout time.Duration
}

// NewGeminiProvider は新しいGeminiProviderを作成
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
	}
}

// SetBaseURL はベースURLを設定（テスト用）
func (p *GeminiProvider) SetBaseURL(url string) {
	p.baseURL = url
}

// SetTimeout はリクエストタイムアウトを設定（0で無制限）
func (p *GeminiProvider) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Generate はLLM生成を実行
func (p *GeminiProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	if p.apiKey == "" {
		return llm.GenerateResponse{}, fmt.Errorf("gemini API key is required")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cfg := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(p.baseURL, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("failed to create gemini client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONOutput {
		genCfg.ResponseMIMEType = "application/json"
	}

	contents, system := p.convertMessages(req)
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, genCfg)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("gemini API error: %w", err)
	}

	out := llm.GenerateResponse{
		Content: resp.Text(),
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return out, nil
}

// Name はプロバイダー名を返す
func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("gemini-%s", p.model)
}

// convertMessages はドメインメッセージをContentに変換し、systemロールは連結して返す
func (p *GeminiProvider) convertMessages(req llm.GenerateRequest) ([]*genai.Content, string) {
	system := make([]string, 0, 1)
	if req.SystemPrompt != "" {
		system = append(system, req.SystemPrompt)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return contents, strings.Join(system, "\n\n")
}
