package conversation

import "context"

// Repository は会話の保管の抽象化（セッションIDごとに独立した会話を保持）
type Repository interface {
	Save(ctx context.Context, c *Conversation) error
	Load(ctx context.Context, id string) (*Conversation, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	IDs(ctx context.Context) ([]string, error)
}
