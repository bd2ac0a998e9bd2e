package task

import "github.com/Nyukimin/housedesign_agent/internal/domain/intent"

// Task は1ターン分のユーザー発話を表す値オブジェクト
type Task struct {
	jobID       JobID
	sessionID   string
	userMessage string
	channel     string
	intent      intent.Intent // 決定された意図
}

// NewTask は新しいTaskを作成
func NewTask(jobID JobID, sessionID, userMessage, channel string) Task {
	return Task{
		jobID:       jobID,
		sessionID:   sessionID,
		userMessage: userMessage,
		channel:     channel,
	}
}

// JobID はジョブIDを返す
func (t Task) JobID() JobID {
	return t.jobID
}

// SessionID はセッションIDを返す
func (t Task) SessionID() string {
	return t.sessionID
}

// UserMessage はユーザーメッセージを返す
func (t Task) UserMessage() string {
	return t.userMessage
}

// Channel はチャネル（cli / http）を返す
func (t Task) Channel() string {
	return t.channel
}

// Intent は決定された意図を返す
func (t Task) Intent() intent.Intent {
	return t.intent
}

// HasIntent は意図が決定済みかを判定
func (t Task) HasIntent() bool {
	return t.intent != ""
}

// WithIntent は意図を設定した新しいTaskを返す
func (t Task) WithIntent(i intent.Intent) Task {
	t.intent = i
	return t
}
