package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/domain/agent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/llm"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

// DefaultHistoryWindow はLLMに渡す直近履歴の既定件数
const DefaultHistoryWindow = 10

// ProcessMessageRequest はメッセージ処理リクエスト
type ProcessMessageRequest struct {
	SessionID   string // 空なら新規セッションを作成
	Channel     string // "cli" / "http"
	UserMessage string
}

// ProcessMessageResponse はメッセージ処理レスポンス
type ProcessMessageResponse struct {
	SessionID   string
	Reply       string
	Intent      intent.Intent
	Confidence  float64
	JobID       string
	Suggestions string // 予算超過時の節約提案（無ければ空）
	Snapshot    conversation.Snapshot
}

// Change は1ターンで適用された変更
type Change struct {
	Intent intent.Intent
	Rooms  []floorplan.Room // 追加・削除・更新された部屋
	Budget float64          // SET_BUDGETの金額
}

// Designer は意図判定と質問回答を担当
type Designer interface {
	DecideAction(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error)
	Answer(ctx context.Context, t task.Task, question string, ac agent.AnswerContext) (string, error)
}

// Advisor は予算超過時の節約提案を担当
type Advisor interface {
	SuggestSavings(ctx context.Context, req agent.SavingsRequest) (string, error)
}

// Formatter はスナップショットと変更を利用者向けの文面にする
type Formatter interface {
	Summary(s conversation.Snapshot) string
	Acknowledge(c Change) string
	Savings(suggestions string) string
}

// Options は会話の既定値
type Options struct {
	Pricing       cost.Pricing
	HistoryWindow int
}

// MessageOrchestrator はメッセージ処理を統括
type MessageOrchestrator struct {
	repo      conversation.Repository
	designer  Designer
	advisor   Advisor
	formatter Formatter
	logger    *zap.Logger
	opts      Options

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock は待機中を含む利用者数を数えるセッションロック
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewMessageOrchestrator は新しいMessageOrchestratorを作成
func NewMessageOrchestrator(
	repo conversation.Repository,
	designer Designer,
	advisor Advisor,
	formatter Formatter,
	logger *zap.Logger,
	opts Options,
) *MessageOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Pricing.RatePerArea <= 0 {
		opts.Pricing = cost.DefaultPricing()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}

	return &MessageOrchestrator{
		repo:      repo,
		designer:  designer,
		advisor:   advisor,
		formatter: formatter,
		logger:    logger,
		opts:      opts,
		locks:     make(map[string]*sessionLock),
	}
}

// StartSession は空の会話を作成して保存し、セッションIDを返す
func (o *MessageOrchestrator) StartSession(ctx context.Context, channel string) (conversation.Snapshot, error) {
	conv := conversation.NewConversation(task.NewSessionID(channel), channel, o.opts.Pricing)
	if err := o.repo.Save(ctx, conv); err != nil {
		return conversation.Snapshot{}, fmt.Errorf("failed to save conversation: %w", err)
	}

	o.logger.Info("session started", zap.String("session_id", conv.ID()), zap.String("channel", channel))
	return conv.Snapshot(), nil
}

// ProcessMessage はメッセージを処理
func (o *MessageOrchestrator) ProcessMessage(ctx context.Context, req ProcessMessageRequest) (ProcessMessageResponse, error) {
	message := strings.TrimSpace(req.UserMessage)
	if message == "" {
		return ProcessMessageResponse{}, floorplan.NewValidationError("message", "must not be empty")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = task.NewSessionID(req.Channel)
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	// 1. 会話をロードまたは作成
	conv, err := o.loadOrCreate(ctx, sessionID, req.Channel)
	if err != nil {
		return ProcessMessageResponse{}, fmt.Errorf("failed to load or create conversation: %w", err)
	}

	// 2. タスクを作成
	jobID := task.NewJobID()
	t := task.NewTask(jobID, sessionID, message, req.Channel)

	// 3. 意図判定
	decision, err := o.designer.DecideAction(ctx, t, o.classifyRequest(conv, message))
	if err != nil {
		return ProcessMessageResponse{}, fmt.Errorf("intent decision failed: %w", err)
	}
	t = t.WithIntent(decision.Intent)

	o.logger.Debug("intent decided",
		zap.String("session_id", sessionID),
		zap.String("job_id", jobID.String()),
		zap.String("intent", decision.Intent.String()),
		zap.Float64("confidence", decision.Confidence),
		zap.String("reason", decision.Reason),
	)

	// 4. 意図に応じて実行
	var reply, suggestions string
	if decision.Intent.IsMutation() {
		change, err := applyChange(conv, decision)
		if err != nil {
			o.logger.Info("change rejected",
				zap.String("session_id", sessionID),
				zap.String("intent", decision.Intent.String()),
				zap.Error(err),
			)
			return ProcessMessageResponse{}, fmt.Errorf("%s: %w", decision.Intent, err)
		}

		snapshot := conv.Snapshot()
		reply = o.formatter.Acknowledge(change) + "\n\n" + o.formatter.Summary(snapshot)

		if snapshot.Budget.IsOver() {
			suggestions = o.suggestSavings(ctx, conv)
			if suggestions != "" {
				reply += "\n\n" + o.formatter.Savings(suggestions)
			}
		}
	} else {
		reply, err = o.designer.Answer(ctx, t, decision.Fields.Question(), agent.AnswerContext{
			History: o.llmHistory(conv),
			Summary: o.formatter.Summary(conv.Snapshot()),
		})
		if err != nil {
			return ProcessMessageResponse{}, fmt.Errorf("answer failed: %w", err)
		}
	}

	// 5. 履歴に追加して保存
	conv.AppendTurn(conversation.Turn{Role: llm.RoleUser, Content: message, Intent: decision.Intent, JobID: jobID.String()})
	conv.AppendTurn(conversation.Turn{Role: llm.RoleAssistant, Content: reply, Intent: decision.Intent, JobID: jobID.String()})

	if err := o.repo.Save(ctx, conv); err != nil {
		return ProcessMessageResponse{}, fmt.Errorf("failed to save conversation: %w", err)
	}

	o.logger.Info("turn processed",
		zap.String("session_id", sessionID),
		zap.String("job_id", jobID.String()),
		zap.String("intent", decision.Intent.String()),
		zap.String("budget_status", string(conv.BudgetStatus().Status)),
	)

	return ProcessMessageResponse{
		SessionID:   sessionID,
		Reply:       reply,
		Intent:      decision.Intent,
		Confidence:  decision.Confidence,
		JobID:       jobID.String(),
		Suggestions: suggestions,
		Snapshot:    conv.Snapshot(),
	}, nil
}

// Snapshot は会話の現在の状態を返す
func (o *MessageOrchestrator) Snapshot(ctx context.Context, sessionID string) (conversation.Snapshot, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	conv, err := o.repo.Load(ctx, sessionID)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	return conv.Snapshot(), nil
}

// Reset は会話を破棄する（次のメッセージで新しい会話が始まる）
func (o *MessageOrchestrator) Reset(ctx context.Context, sessionID string) error {
	unlock := o.lockSession(sessionID)
	defer unlock()

	if err := o.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	o.logger.Info("session reset", zap.String("session_id", sessionID))
	return nil
}

// PruneIdle はcutoffより前に最終更新された会話を破棄し、破棄したIDを返す
// 判定はセッションロック下で行い、処理中のターンが保存した会話は残す
func (o *MessageOrchestrator) PruneIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := o.repo.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	pruned := make([]string, 0)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		removed, err := o.pruneIfIdle(ctx, id, cutoff)
		if err != nil {
			return pruned, err
		}
		if removed {
			pruned = append(pruned, id)
		}
	}

	if len(pruned) > 0 {
		o.logger.Info("pruned idle sessions", zap.Int("count", len(pruned)), zap.Strings("session_ids", pruned))
	}
	return pruned, nil
}

func (o *MessageOrchestrator) pruneIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock := o.lockSession(id)
	defer unlock()

	conv, err := o.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !conv.UpdatedAt().Before(cutoff) {
		return false, nil
	}

	if err := o.repo.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	return true, nil
}

// lockSession はセッション単位でターンを直列化する
// 保持者も待機者もいなくなったエントリは削除する
func (o *MessageOrchestrator) lockSession(sessionID string) func() {
	o.mu.Lock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		o.locks[sessionID] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		o.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(o.locks, sessionID)
		}
		o.mu.Unlock()
	}
}

// loadOrCreate は会話をロードまたは作成
func (o *MessageOrchestrator) loadOrCreate(ctx context.Context, id, channel string) (*conversation.Conversation, error) {
	conv, err := o.repo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			return conversation.NewConversation(id, channel, o.opts.Pricing), nil
		}
		return nil, err
	}
	return conv, nil
}

// classifyRequest は分類器に渡す文脈を組み立てる
func (o *MessageOrchestrator) classifyRequest(conv *conversation.Conversation, message string) intent.ClassifyRequest {
	req := intent.ClassifyRequest{
		Utterance: message,
		RoomNames: conv.RoomNames(),
	}
	for _, turn := range conv.RecentHistory(o.opts.HistoryWindow) {
		req.History = append(req.History, turn.Role+": "+turn.Content)
	}
	if budget, ok := conv.Budget(); ok {
		req.Budget = &budget
	}
	return req
}

func (o *MessageOrchestrator) llmHistory(conv *conversation.Conversation) []llm.Message {
	turns := conv.RecentHistory(o.opts.HistoryWindow)
	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

// suggestSavings は節約提案を取得（失敗してもターンは継続）
func (o *MessageOrchestrator) suggestSavings(ctx context.Context, conv *conversation.Conversation) string {
	if o.advisor == nil {
		return ""
	}

	suggestions, err := o.advisor.SuggestSavings(ctx, agent.SavingsRequest{
		Rooms:    conv.Rooms(),
		Estimate: conv.Estimate(),
		Status:   conv.BudgetStatus(),
		Currency: conv.Pricing().Currency,
	})
	if err != nil {
		o.logger.Warn("savings suggestion failed",
			zap.String("session_id", conv.ID()),
			zap.Error(err),
		)
		return ""
	}
	return suggestions
}

// applyChange は判定結果のフィールドを検証して会話に適用
func applyChange(conv *conversation.Conversation, d intent.Decision) (Change, error) {
	change := Change{Intent: d.Intent}

	switch d.Intent {
	case intent.AddRoom:
		specs, err := d.Fields.RoomSpecs()
		if err != nil {
			return Change{}, err
		}
		if len(specs) == 1 {
			room, err := conv.AddRoom(specs[0])
			if err != nil {
				return Change{}, err
			}
			change.Rooms = []floorplan.Room{room}
		} else {
			rooms, err := conv.AddRooms(specs)
			if err != nil {
				return Change{}, err
			}
			change.Rooms = rooms
		}

	case intent.RemoveRoom:
		query, err := d.Fields.RoomQuery()
		if err != nil {
			return Change{}, err
		}
		room, err := conv.RemoveRoom(query)
		if err != nil {
			return Change{}, err
		}
		change.Rooms = []floorplan.Room{room}

	case intent.UpdateRoom:
		query, err := d.Fields.RoomQuery()
		if err != nil {
			return Change{}, err
		}
		width, length, err := d.Fields.Dimensions()
		if err != nil {
			return Change{}, err
		}
		room, err := conv.UpdateRoom(query, width, length)
		if err != nil {
			return Change{}, err
		}
		change.Rooms = []floorplan.Room{room}

	case intent.SetBudget:
		amount, err := d.Fields.BudgetAmount()
		if err != nil {
			return Change{}, err
		}
		if err := conv.SetBudget(amount); err != nil {
			return Change{}, err
		}
		change.Budget = amount

	default:
		return Change{}, fmt.Errorf("unsupported intent: %s", d.Intent)
	}

	return change, nil
}
