package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
)

// generateRequest は /api/generate のリクエスト
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse は /api/generate のレスポンス
type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// OllamaProvider はOllama APIプロバイダーの実装
type OllamaProvider struct {
	model      string
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewOllamaProvider は新しいOllamaProviderを作成
func NewOllamaProvider(baseURL, model string, logger *zap.Logger) *OllamaProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(120 * time.Second). // Ollamaは遅い場合があるため長めに設定
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &OllamaProvider{
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

// SetRetryCount は接続エラー時の再試行回数を設定
func (p *OllamaProvider) SetRetryCount(n int) {
	p.httpClient.
		SetRetryCount(n).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
}

// Generate はLLM生成を実行
func (p *OllamaProvider) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	body := generateRequest{
		Model:  p.model,
		Prompt: p.buildPrompt(req),
		System: req.SystemPrompt,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.JSONOutput {
		body.Format = "json"
	}

	var result generateResponse
	var apiErr errorResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/generate")
	if err != nil {
		p.logger.Error("Ollama API call failed",
			zap.String("model", p.model),
			zap.Error(err),
		)
		return llm.GenerateResponse{}, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.IsError() {
		p.logger.Error("Ollama API returned error",
			zap.String("model", p.model),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", apiErr.Error),
		)
		return llm.GenerateResponse{}, fmt.Errorf("ollama API error: status=%d, body=%s", resp.StatusCode(), resp.String())
	}

	p.logger.Debug("Ollama generation finished",
		zap.String("model", p.model),
		zap.Int("eval_count", result.EvalCount),
		zap.Duration("elapsed", resp.Time()),
	)

	finishReason := result.DoneReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return llm.GenerateResponse{
		Content:      result.Response,
		TokensUsed:   result.PromptEvalCount + result.EvalCount,
		FinishReason: finishReason,
	}, nil
}

// Name はプロバイダー名を返す
func (p *OllamaProvider) Name() string {
	return fmt.Sprintf("ollama-%s", p.model)
}

// buildPrompt はメッセージリストからプロンプトを構築
// システムプロンプトは system フィールドで別送する
func (p *OllamaProvider) buildPrompt(req llm.GenerateRequest) string {
	parts := make([]string, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleUser:
			parts = append(parts, fmt.Sprintf("User: %s", msg.Content))
		case llm.RoleAssistant:
			parts = append(parts, fmt.Sprintf("Assistant: %s", msg.Content))
		case llm.RoleSystem:
			parts = append(parts, fmt.Sprintf("System: %s", msg.Content))
		}
	}

	return strings.Join(parts, "\n")
}
