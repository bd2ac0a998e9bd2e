package conversation

import (
	"errors"
	"time"

	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
)

// ErrConversationNotFound は会話が見つからない場合のエラー
var ErrConversationNotFound = errors.New("conversation not found")

// Turn は会話履歴の1発話
type Turn struct {
	Role    string        `json:"role"` // "user" / "assistant"
	Content string        `json:"content"`
	Intent  intent.Intent `json:"intent,omitempty"`
	JobID   string        `json:"job_id,omitempty"`
	At      time.Time     `json:"at"`
}

// Conversation は1セッション分の設計状態を表すエンティティ
// 間取り・予算・履歴を保持し、変更のたびに概算と予算比較を再計算する
type Conversation struct {
	id        string
	channel   string
	store     *floorplan.Store
	pricing   cost.Pricing
	budget    *float64
	history   []Turn
	estimate  cost.Estimate
	status    cost.BudgetStatus
	createdAt time.Time
	updatedAt time.Time
}

// NewConversation は空の間取りで会話を開始
func NewConversation(id, channel string, pricing cost.Pricing) *Conversation {
	now := time.Now()
	c := &Conversation{
		id:        id,
		channel:   channel,
		store:     floorplan.NewStore(),
		pricing:   pricing,
		history:   make([]Turn, 0),
		createdAt: now,
		updatedAt: now,
	}
	c.recompute()
	return c
}

// ID は会話IDを返す
func (c *Conversation) ID() string {
	return c.id
}

// Channel はチャネルを返す
func (c *Conversation) Channel() string {
	return c.channel
}

// Pricing は単価設定を返す
func (c *Conversation) Pricing() cost.Pricing {
	return c.pricing
}

// CreatedAt は作成時刻を返す
func (c *Conversation) CreatedAt() time.Time {
	return c.createdAt
}

// UpdatedAt は最終更新時刻を返す
func (c *Conversation) UpdatedAt() time.Time {
	return c.updatedAt
}

// AddRoom は部屋を1件追加
func (c *Conversation) AddRoom(spec floorplan.RoomSpec) (floorplan.Room, error) {
	room, err := c.store.Add(spec)
	if err != nil {
		return floorplan.Room{}, err
	}
	c.touch()
	return room, nil
}

// AddRooms は複数の部屋をまとめて追加（全件成功か、何も変更しないか）
func (c *Conversation) AddRooms(specs []floorplan.RoomSpec) ([]floorplan.Room, error) {
	rooms, err := c.store.AddAll(specs)
	if err != nil {
		return nil, err
	}
	c.touch()
	return rooms, nil
}

// RemoveRoom は参照を解決して部屋を1件削除
func (c *Conversation) RemoveRoom(query string) (floorplan.Room, error) {
	room, err := c.store.Remove(query)
	if err != nil {
		return floorplan.Room{}, err
	}
	c.touch()
	return room, nil
}

// UpdateRoom は参照を解決して寸法を変更
func (c *Conversation) UpdateRoom(query string, width, length float64) (floorplan.Room, error) {
	room, err := c.store.Update(query, width, length)
	if err != nil {
		return floorplan.Room{}, err
	}
	c.touch()
	return room, nil
}

// SetBudget は予算を設定（上書き可）
func (c *Conversation) SetBudget(amount float64) error {
	if err := cost.ValidateBudget(amount); err != nil {
		return err
	}
	c.budget = &amount
	c.touch()
	return nil
}

// Budget は予算と設定済みかどうかを返す
func (c *Conversation) Budget() (float64, bool) {
	if c.budget == nil {
		return 0, false
	}
	return *c.budget, true
}

// Rooms は部屋一覧のコピーを返す
func (c *Conversation) Rooms() []floorplan.Room {
	return c.store.List()
}

// RoomNames は部屋名を挿入順で返す
func (c *Conversation) RoomNames() []string {
	return c.store.Names()
}

// Estimate は最新の費用概算を返す
func (c *Conversation) Estimate() cost.Estimate {
	return c.estimate
}

// BudgetStatus は最新の予算比較結果を返す
func (c *Conversation) BudgetStatus() cost.BudgetStatus {
	return c.status
}

// AppendTurn は履歴に発話を追加（追記のみ）
func (c *Conversation) AppendTurn(turn Turn) {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	c.history = append(c.history, turn)
	c.updatedAt = turn.At
}

// History は会話履歴のコピーを返す
func (c *Conversation) History() []Turn {
	history := make([]Turn, len(c.history))
	copy(history, c.history)
	return history
}

// RecentHistory は最近N件の履歴を返す
func (c *Conversation) RecentHistory(n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	history := c.History()
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HistoryCount は履歴の件数を返す
func (c *Conversation) HistoryCount() int {
	return len(c.history)
}

// touch は変更後に概算と予算比較を再計算する
func (c *Conversation) touch() {
	c.recompute()
	c.updatedAt = time.Now()
}

func (c *Conversation) recompute() {
	c.estimate = cost.Compute(c.store.List(), c.pricing.RatePerArea)
	c.status = cost.Compare(c.estimate, c.budget)
}
