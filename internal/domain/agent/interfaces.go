package agent

import (
	"context"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

// Classifier は意図分類器のインターフェース
type Classifier interface {
	Classify(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error)
}

// RuleDictionary はルール辞書のインターフェース
type RuleDictionary interface {
	Match(t task.Task) (intent.Decision, bool) // 判定結果, マッチしたか
}
