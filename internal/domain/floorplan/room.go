package floorplan

import (
	"math"
	"strings"
)

// DefaultFloor は階数未指定時の階
const DefaultFloor = 1

// DefaultType は種別未指定時の部屋種別
const DefaultType = "other"

// Room は名前付きの矩形の部屋（単位はフィート）
type Room struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Floor  int     `json:"floor"`
}

// Area は面積（幅×奥行）を返す
func (r Room) Area() float64 {
	return r.Width * r.Length
}

// RoomSpec は追加する部屋の入力値
// Floor=0 と空のTypeはデフォルト値で補完される
type RoomSpec struct {
	Name   string
	Type   string
	Width  float64
	Length float64
	Floor  int
}

// Validate は入力値を検証して正規化済みのRoomを返す
func (s RoomSpec) Validate() (Room, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return Room{}, NewValidationError("name", "must not be empty")
	}
	if err := ValidateDimensions(s.Width, s.Length); err != nil {
		return Room{}, err
	}

	floor := s.Floor
	if floor == 0 {
		floor = DefaultFloor
	}
	if floor < 1 {
		return Room{}, NewValidationError("floor", "must be 1 or greater")
	}

	roomType := strings.ToLower(strings.TrimSpace(s.Type))
	if roomType == "" {
		roomType = DefaultType
	}

	return Room{
		Name:   name,
		Type:   roomType,
		Width:  s.Width,
		Length: s.Length,
		Floor:  floor,
	}, nil
}

// ValidateDimensions は幅・奥行が有限の正数であることを検証
func ValidateDimensions(width, length float64) error {
	if !isPositiveFinite(width) {
		return NewValidationError("width", "must be a positive number")
	}
	if !isPositiveFinite(length) {
		return NewValidationError("length", "must be a positive number")
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// normalizeName は比較用に名前を正規化
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
