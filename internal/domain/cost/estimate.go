package cost

import (
	"math"

	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
)

// 既定の単価設定（モントリオールの住宅建築の概算）
const (
	DefaultRatePerArea = 350.0
	DefaultCurrency    = "CAD"
	DefaultRegion      = "Montreal"
)

// Pricing は面積あたり単価の設定値
type Pricing struct {
	RatePerArea float64 `json:"rate_per_area"`
	Currency    string  `json:"currency"`
	Region      string  `json:"region"`
}

// DefaultPricing は既定の単価設定を返す
func DefaultPricing() Pricing {
	return Pricing{
		RatePerArea: DefaultRatePerArea,
		Currency:    DefaultCurrency,
		Region:      DefaultRegion,
	}
}

// Validate は単価が有限の正数であることを検証
func (p Pricing) Validate() error {
	if math.IsNaN(p.RatePerArea) || math.IsInf(p.RatePerArea, 0) || p.RatePerArea <= 0 {
		return floorplan.NewValidationError("rate_per_area", "must be a positive number")
	}
	return nil
}

// LineItem は部屋ごとの内訳
type LineItem struct {
	Room string  `json:"room"`
	Area float64 `json:"area"`
	Cost float64 `json:"cost"`
}

// Estimate は間取りから導出される費用概算（保存しない派生値）
type Estimate struct {
	TotalArea   float64    `json:"total_area"`
	RatePerArea float64    `json:"rate_per_area"`
	TotalCost   float64    `json:"total_cost"`
	Lines       []LineItem `json:"lines"`
}

// Compute は部屋の面積を挿入順に合計し、単価を掛けて概算する（純粋関数）
func Compute(rooms []floorplan.Room, ratePerArea float64) Estimate {
	est := Estimate{
		RatePerArea: ratePerArea,
		Lines:       make([]LineItem, 0, len(rooms)),
	}

	for _, r := range rooms {
		area := r.Area()
		est.TotalArea += area
		est.Lines = append(est.Lines, LineItem{
			Room: r.Name,
			Area: area,
			Cost: area * ratePerArea,
		})
	}

	est.TotalCost = est.TotalArea * ratePerArea
	return est
}
