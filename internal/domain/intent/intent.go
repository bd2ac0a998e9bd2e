package intent

// Intent は発話の意図ラベル
type Intent string

// 意図ラベルの定数定義
const (
	AddRoom     Intent = "ADD_ROOM"     // 部屋の追加（複数可）
	RemoveRoom  Intent = "REMOVE_ROOM"  // 部屋の削除
	UpdateRoom  Intent = "UPDATE_ROOM"  // 寸法の変更
	SetBudget   Intent = "SET_BUDGET"   // 予算の設定
	AskQuestion Intent = "ASK_QUESTION" // 設計相談・質問
	Other       Intent = "OTHER"        // 雑談・分類不能
)

// All は全ラベルを定義順で返す
func All() []Intent {
	return []Intent{AddRoom, RemoveRoom, UpdateRoom, SetBudget, AskQuestion, Other}
}

// String はIntentの文字列表現を返す
func (i Intent) String() string {
	return string(i)
}

// IsValid は既知のラベルかを判定
func (i Intent) IsValid() bool {
	for _, known := range All() {
		if i == known {
			return true
		}
	}
	return false
}

// IsMutation は状態（間取り・予算）を変更する意図かを判定
func (i Intent) IsMutation() bool {
	return i == AddRoom || i == RemoveRoom || i == UpdateRoom || i == SetBudget
}

// IsConversational は回答生成に回す意図かを判定
func (i Intent) IsConversational() bool {
	return i == AskQuestion || i == Other
}

// ClassifyRequest は分類器に渡す入力
type ClassifyRequest struct {
	Utterance string   // 今回の発話
	History   []string // 直近の会話（"user: ..." 形式）
	RoomNames []string // 現在の部屋名（挿入順）
	Budget    *float64 // 設定済み予算（未設定はnil）
}

// Decision は意図判定の結果
type Decision struct {
	Intent     Intent  // 決定された意図
	Confidence float64 // 確信度（0.0 - 1.0）
	Reason     string  // 決定理由
	Fields     Fields  // 構造化フィールド（モデル出力そのまま）
}

// NewDecision は新しいDecisionを作成
func NewDecision(intent Intent, confidence float64, reason string, fields Fields) Decision {
	if fields == nil {
		fields = Fields{}
	}
	return Decision{
		Intent:     intent,
		Confidence: confidence,
		Reason:     reason,
		Fields:     fields,
	}
}
