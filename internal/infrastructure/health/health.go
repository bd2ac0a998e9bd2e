package health

import (
	"sync"
	"time"
)

// CheckResult は1件のチェック結果
type CheckResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Report はヘルスチェック全体の結果
type Report struct {
	Status    string                 `json:"status"` // "ok" / "degraded"
	Checks    map[string]CheckResult `json:"checks"`
	CheckedAt time.Time              `json:"checked_at"`
}

// Checker は名前付きチェックを保持して並行実行する
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker は新しいCheckerを作成
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
	}
}

// Register はチェックを登録（同名は上書き）
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Run は全チェックを実行
func (c *Checker) Run() Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	report := Report{
		Status:    "ok",
		Checks:    make(map[string]CheckResult, len(checks)),
		CheckedAt: time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			ok, msg := fn()

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = CheckResult{OK: ok, Message: msg}
			if !ok {
				report.Status = "degraded"
			}
		}(name, fn)
	}
	wg.Wait()

	return report
}

// Healthy は全チェックが成功したかを判定
func (r Report) Healthy() bool {
	return r.Status == "ok"
}
