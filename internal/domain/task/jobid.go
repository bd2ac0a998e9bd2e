package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobID はターンの一意識別子を表す値オブジェクト
type JobID struct {
	value string
}

// NewJobID は新しいJobIDを生成
func NewJobID() JobID {
	// フォーマット: YYYYMMDD-HHMMSS-{UUID先頭8文字}
	return JobID{
		value: fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), shortUUID()),
	}
}

// JobIDFromString は文字列からJobIDを復元
func JobIDFromString(s string) JobID {
	return JobID{value: s}
}

// String はJobIDの文字列表現を返す
func (j JobID) String() string {
	return j.value
}

// MarshalText はJSONレスポンスで文字列として出力するために使う
func (j JobID) MarshalText() ([]byte, error) {
	return []byte(j.value), nil
}

// Equals は2つのJobIDが等しいかを判定
func (j JobID) Equals(other JobID) bool {
	return j.value == other.value
}

// IsZero はJobIDがゼロ値かを判定
func (j JobID) IsZero() bool {
	return j.value == ""
}

// NewSessionID は会話セッションIDを生成
// フォーマット: YYYYMMDD-{channel}-{UUID先頭8文字}
func NewSessionID(channel string) string {
	if channel == "" {
		channel = "session"
	}
	return fmt.Sprintf("%s-%s-%s", time.Now().Format("20060102"), channel, shortUUID())
}

func shortUUID() string {
	return uuid.New().String()[:8]
}
