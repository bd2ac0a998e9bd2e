package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
)

// Fields は分類器が返す構造化ペイロード
//
// 期待するキー:
//
//	ADD_ROOM:    name, width, length, floor?, type?  または rooms: [{...}, ...]
//	REMOVE_ROOM: room
//	UPDATE_ROOM: room, width, length
//	SET_BUDGET:  amount
type Fields map[string]any

// RoomSpecs はADD_ROOMのフィールドを部屋入力値に変換
func (f Fields) RoomSpecs() ([]floorplan.RoomSpec, error) {
	if raw, ok := f["rooms"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return nil, floorplan.NewValidationError("rooms", "must be a list of rooms")
		}
		if len(items) == 0 {
			return nil, floorplan.NewValidationError("rooms", "must contain at least one room")
		}

		specs := make([]floorplan.RoomSpec, 0, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, floorplan.NewValidationError(fmt.Sprintf("rooms[%d]", i), "must be an object")
			}
			spec, err := Fields(obj).roomSpec()
			if err != nil {
				return nil, fmt.Errorf("rooms[%d]: %w", i, err)
			}
			specs = append(specs, spec)
		}
		return specs, nil
	}

	spec, err := f.roomSpec()
	if err != nil {
		return nil, err
	}
	return []floorplan.RoomSpec{spec}, nil
}

// maxFloor はintへ変換できる階数の上限
const maxFloor = math.MaxInt32

func (f Fields) roomSpec() (floorplan.RoomSpec, error) {
	name, err := f.requiredString("name")
	if err != nil {
		return floorplan.RoomSpec{}, err
	}
	width, length, err := f.Dimensions()
	if err != nil {
		return floorplan.RoomSpec{}, err
	}

	floor := 0
	if _, ok := f["floor"]; ok {
		v, err := f.number("floor")
		if err != nil {
			return floorplan.RoomSpec{}, err
		}
		if v != math.Trunc(v) {
			return floorplan.RoomSpec{}, floorplan.NewValidationError("floor", "must be a whole number")
		}
		if math.Abs(v) > maxFloor {
			return floorplan.RoomSpec{}, floorplan.NewValidationError("floor", "is out of range")
		}
		floor = int(v)
	}

	roomType, _ := f["type"].(string)

	return floorplan.RoomSpec{
		Name:   name,
		Type:   roomType,
		Width:  width,
		Length: length,
		Floor:  floor,
	}, nil
}

// RoomQuery はREMOVE_ROOM/UPDATE_ROOMの対象参照を返す
func (f Fields) RoomQuery() (string, error) {
	return f.requiredString("room")
}

// Dimensions は幅と奥行を返す
func (f Fields) Dimensions() (float64, float64, error) {
	width, err := f.number("width")
	if err != nil {
		return 0, 0, err
	}
	length, err := f.number("length")
	if err != nil {
		return 0, 0, err
	}
	return width, length, nil
}

// BudgetAmount はSET_BUDGETの金額を返す
func (f Fields) BudgetAmount() (float64, error) {
	return f.number("amount")
}

// Question はASK_QUESTIONの質問文を返す（無ければ空文字）
func (f Fields) Question() string {
	q, _ := f["question"].(string)
	return strings.TrimSpace(q)
}

func (f Fields) requiredString(key string) (string, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return "", floorplan.NewValidationError(key, "is required")
	}
	s, ok := raw.(string)
	if !ok {
		return "", floorplan.NewValidationError(key, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", floorplan.NewValidationError(key, "must not be empty")
	}
	return s, nil
}

// number はJSON由来の数値（float64/int/json.Number/数値文字列）を取り出す
func (f Fields) number(key string) (float64, error) {
	raw, ok := f[key]
	if !ok || raw == nil {
		return 0, floorplan.NewValidationError(key, "is required")
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, floorplan.NewValidationError(key, "must be a number")
		}
		v = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil {
			return 0, floorplan.NewValidationError(key, "must be a number")
		}
		v = parsed
	default:
		return 0, floorplan.NewValidationError(key, "must be a number")
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, floorplan.NewValidationError(key, "must be finite")
	}
	return v, nil
}
