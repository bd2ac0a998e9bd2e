package llm

import "context"

// メッセージのロール
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message はLLMメッセージを表す
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// GenerateRequest はLLM生成リクエスト
type GenerateRequest struct {
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	JSONOutput   bool // JSONのみを返すよう要求（対応するバックエンドのみ）
}

// GenerateResponse はLLM生成レスポンス
type GenerateResponse struct {
	Content      string
	TokensUsed   int
	FinishReason string
}

// LLMProvider はLLMプロバイダーの抽象化
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}

// UserPrompt は単一のユーザーメッセージからなるリクエストを作成
func UserPrompt(systemPrompt, content string) GenerateRequest {
	return GenerateRequest{
		Messages:     []Message{{Role: RoleUser, Content: content}},
		SystemPrompt: systemPrompt,
	}
}
