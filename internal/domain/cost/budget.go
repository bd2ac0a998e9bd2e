package cost

import (
	"math"

	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
)

// Status は予算との比較結果
type Status string

const (
	StatusNoBudget Status = "NO_BUDGET_SET"
	StatusUnder    Status = "UNDER"
	StatusOver     Status = "OVER"
	StatusExact    Status = "EXACT"
)

// BudgetStatus は概算と予算の比較結果
// HasBudget=false のとき Budget / Delta / DeltaPct はゼロのまま
type BudgetStatus struct {
	Budget    float64 `json:"budget"`
	HasBudget bool    `json:"has_budget"`
	Status    Status  `json:"status"`
	Delta     float64 `json:"delta"`
	DeltaPct  float64 `json:"delta_pct"`
}

// IsOver は予算超過かどうかを返す
func (b BudgetStatus) IsOver() bool {
	return b.Status == StatusOver
}

// Compare は概算を予算と比較する
// 浮動小数点の完全一致のみEXACT。丸め誤差で異なる値はUNDER/OVERに分類される
// ValidateBudgetを通らない予算（0以下・NaN・Inf）は未設定として扱う
func Compare(est Estimate, budget *float64) BudgetStatus {
	if budget == nil || ValidateBudget(*budget) != nil {
		return BudgetStatus{Status: StatusNoBudget}
	}

	b := *budget
	status := BudgetStatus{
		Budget:    b,
		HasBudget: true,
	}

	switch {
	case est.TotalCost == b:
		status.Status = StatusExact
		return status
	case est.TotalCost < b:
		status.Status = StatusUnder
	default:
		status.Status = StatusOver
	}

	status.Delta = math.Abs(est.TotalCost - b)
	status.DeltaPct = status.Delta / b * 100
	return status
}

// ValidateBudget は予算額が有限の正数であることを検証
func ValidateBudget(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return floorplan.NewValidationError("budget", "must be a positive amount")
	}
	return nil
}
