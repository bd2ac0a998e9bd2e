package conversation

import (
	"slices"
	"time"

	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
)

// Snapshot は整形・出力用の読み取り専用データ
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Rooms     []floorplan.Room  `json:"rooms"`
	Estimate  cost.Estimate     `json:"estimate"`
	Budget    cost.BudgetStatus `json:"budget"`
	Pricing   cost.Pricing      `json:"pricing"`
	Turns     int               `json:"turns"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Snapshot は現在の状態のスナップショットを返す
func (c *Conversation) Snapshot() Snapshot {
	est := c.estimate
	est.Lines = slices.Clone(est.Lines)

	return Snapshot{
		SessionID: c.id,
		Rooms:     c.store.List(),
		Estimate:  est,
		Budget:    c.status,
		Pricing:   c.pricing,
		Turns:     len(c.history),
		UpdatedAt: c.updatedAt,
	}
}

// IsEmpty は部屋が1件もないかを判定
func (s Snapshot) IsEmpty() bool {
	return len(s.Rooms) == 0
}

// Floors は部屋のある階を昇順で返す
func (s Snapshot) Floors() []int {
	floors := make([]int, 0)
	for _, r := range s.Rooms {
		if !slices.Contains(floors, r.Floor) {
			floors = append(floors, r.Floor)
		}
	}
	slices.Sort(floors)
	return floors
}
