package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
)

// MemoryRepository はプロセス内メモリのconversation.Repository実装
// プロセス終了で全会話は破棄される
type MemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
}

// NewMemoryRepository は新しいMemoryRepositoryを作成
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[string]*conversation.Conversation),
	}
}

// Save は会話を保存
func (r *MemoryRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	if c == nil {
		return fmt.Errorf("conversation must not be nil")
	}
	if c.ID() == "" {
		return fmt.Errorf("conversation id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID()] = c
	return nil
}

// Load は会話をロード
func (r *MemoryRepository) Load(ctx context.Context, id string) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", conversation.ErrConversationNotFound, id)
	}
	return c, nil
}

// Exists は会話が存在するか確認
func (r *MemoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conversations[id]
	return ok, nil
}

// Delete は会話を削除
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conversations, id) // 既に存在しない場合はエラーとしない
	return nil
}

// Len は保持している会話数を返す
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

// IDs は保持している会話のIDを昇順で返す
func (r *MemoryRepository) IDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conversations))
	for id := range r.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
