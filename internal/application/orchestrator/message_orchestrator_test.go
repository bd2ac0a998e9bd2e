package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nyukimin/housedesign_agent/internal/domain/agent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockRepository はテスト用のconversation.Repository
type mockRepository struct {
	mu            sync.Mutex
	conversations map[string]*conversation.Conversation
	saves         int
	saveErr       error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		conversations: make(map[string]*conversation.Conversation),
	}
}

func (m *mockRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.conversations[c.ID()] = c
	return nil
}

func (m *mockRepository) Load(ctx context.Context, id string) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.conversations[id]
	if !exists {
		return nil, conversation.ErrConversationNotFound
	}
	return c, nil
}

func (m *mockRepository) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.conversations[id]
	return exists, nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
	return nil
}

func (m *mockRepository) IDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// mockDesigner はテスト用のDesigner
type mockDesigner struct {
	decisions   []intent.Decision // 順番に返す（最後の値を使い回す）
	decideErr   error
	answer      string
	answerErr   error
	lastRequest intent.ClassifyRequest
	lastContext agent.AnswerContext
	answers     int
}

func (m *mockDesigner) DecideAction(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	m.lastRequest = req
	if m.decideErr != nil {
		return intent.Decision{}, m.decideErr
	}
	d := m.decisions[0]
	if len(m.decisions) > 1 {
		m.decisions = m.decisions[1:]
	}
	return d, nil
}

func (m *mockDesigner) Answer(ctx context.Context, t task.Task, question string, ac agent.AnswerContext) (string, error) {
	m.answers++
	m.lastContext = ac
	return m.answer, m.answerErr
}

// mockAdvisor はテスト用のAdvisor
type mockAdvisor struct {
	response string
	err      error
	calls    int
	lastReq  agent.SavingsRequest
}

func (m *mockAdvisor) SuggestSavings(ctx context.Context, req agent.SavingsRequest) (string, error) {
	m.calls++
	m.lastReq = req
	return m.response, m.err
}

// stubFormatter はテスト用のFormatter
type stubFormatter struct{}

func (stubFormatter) Summary(s conversation.Snapshot) string {
	return fmt.Sprintf("summary: %d rooms, %.0f", len(s.Rooms), s.Estimate.TotalCost)
}

func (stubFormatter) Acknowledge(c Change) string {
	return fmt.Sprintf("ack: %s", c.Intent)
}

func (stubFormatter) Savings(suggestions string) string {
	return "savings: " + suggestions
}

func addOffice() intent.Decision {
	return intent.NewDecision(intent.AddRoom, 0.9, "test", intent.Fields{"name": "Office", "width": 12.0, "length": 14.0})
}

func newTestOrchestrator(repo *mockRepository, designer *mockDesigner, advisor Advisor) *MessageOrchestrator {
	return NewMessageOrchestrator(repo, designer, advisor, stubFormatter{}, zap.NewNop(), Options{})
}

func TestNewMessageOrchestrator(t *testing.T) {
	orchestrator := NewMessageOrchestrator(newMockRepository(), &mockDesigner{}, nil, stubFormatter{}, nil, Options{})

	if orchestrator == nil {
		t.Fatal("NewMessageOrchestrator should not return nil")
	}
	if orchestrator.opts.Pricing != cost.DefaultPricing() {
		t.Errorf("Expected default pricing, got %+v", orchestrator.opts.Pricing)
	}
	if orchestrator.opts.HistoryWindow != DefaultHistoryWindow {
		t.Errorf("Expected history window %d, got %d", DefaultHistoryWindow, orchestrator.opts.HistoryWindow)
	}
}

func TestMessageOrchestrator_ProcessMessage_AddRoom(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{decisions: []intent.Decision{addOffice()}}
	orchestrator := newTestOrchestrator(repo, designer, &mockAdvisor{})

	resp, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{
		SessionID:   "20260302-cli-abcd1234",
		Channel:     "cli",
		UserMessage: "Add an office 12 by 14",
	})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if resp.Intent != intent.AddRoom {
		t.Errorf("Expected intent ADD_ROOM, got '%s'", resp.Intent)
	}
	if resp.Reply != "ack: ADD_ROOM\n\nsummary: 1 rooms, 58800" {
		t.Errorf("Unexpected reply: %q", resp.Reply)
	}
	if resp.Snapshot.Estimate.TotalArea != 168 || resp.Snapshot.Estimate.TotalCost != 58800 {
		t.Errorf("Expected 168 / 58800, got %f / %f", resp.Snapshot.Estimate.TotalArea, resp.Snapshot.Estimate.TotalCost)
	}
	if task.JobIDFromString(resp.JobID).IsZero() {
		t.Error("JobID should be set")
	}

	conv, err := repo.Load(context.Background(), "20260302-cli-abcd1234")
	if err != nil {
		t.Fatalf("Conversation should be saved: %v", err)
	}
	if conv.HistoryCount() != 2 {
		t.Errorf("Expected user and assistant turns, got %d", conv.HistoryCount())
	}
	if designer.answers != 0 {
		t.Error("Answer should not be called for a mutation")
	}
}

func TestMessageOrchestrator_ProcessMessage_GeneratesSessionID(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{decisions: []intent.Decision{addOffice()}}
	orchestrator := newTestOrchestrator(repo, designer, nil)

	resp, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{
		Channel:     "http",
		UserMessage: "Add an office 12 by 14",
	})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if !strings.Contains(resp.SessionID, "-http-") {
		t.Errorf("Expected generated session id for channel http, got '%s'", resp.SessionID)
	}
	if exists, _ := repo.Exists(context.Background(), resp.SessionID); !exists {
		t.Error("Generated session should be saved")
	}
}

func TestMessageOrchestrator_ProcessMessage_EmptyMessage(t *testing.T) {
	repo := newMockRepository()
	orchestrator := newTestOrchestrator(repo, &mockDesigner{}, nil)

	_, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{SessionID: "s1", UserMessage: "   "})
	if !errors.Is(err, floorplan.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if repo.saves != 0 {
		t.Error("Nothing should be saved for an empty message")
	}
}

func TestMessageOrchestrator_ProcessMessage_DomainErrorLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		decision intent.Decision
		wantErr  error
	}{
		{
			name:     "duplicate room",
			decision: intent.NewDecision(intent.AddRoom, 0.9, "test", intent.Fields{"name": "office", "width": 10.0, "length": 10.0}),
			wantErr:  floorplan.ErrDuplicateName,
		},
		{
			name:     "update missing room",
			decision: intent.NewDecision(intent.UpdateRoom, 0.9, "test", intent.Fields{"room": "Library", "width": 20.0, "length": 20.0}),
			wantErr:  floorplan.ErrNotFound,
		},
		{
			name:     "remove missing room",
			decision: intent.NewDecision(intent.RemoveRoom, 0.9, "test", intent.Fields{"room": "sauna"}),
			wantErr:  floorplan.ErrNotFound,
		},
		{
			name:     "missing width",
			decision: intent.NewDecision(intent.AddRoom, 0.9, "test", intent.Fields{"name": "Den", "length": 10.0}),
			wantErr:  floorplan.ErrValidation,
		},
		{
			name:     "negative budget",
			decision: intent.NewDecision(intent.SetBudget, 0.9, "test", intent.Fields{"amount": -5.0}),
			wantErr:  floorplan.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			designer := &mockDesigner{decisions: []intent.Decision{addOffice(), tt.decision}}
			orchestrator := newTestOrchestrator(repo, designer, nil)
			ctx := context.Background()

			if _, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "add office"}); err != nil {
				t.Fatalf("setup failed: %v", err)
			}
			before, _ := orchestrator.Snapshot(ctx, "s1")

			_, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "change it"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			after, _ := orchestrator.Snapshot(ctx, "s1")
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("Conversation changed after failed turn (-before +after):\n%s", diff)
			}
		})
	}
}

func TestMessageOrchestrator_ProcessMessage_OverBudgetSuggestions(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{decisions: []intent.Decision{
		intent.NewDecision(intent.SetBudget, 0.85, "rule", intent.Fields{"amount": 50000.0}),
		addOffice(),
	}}
	advisor := &mockAdvisor{response: "Shrink the office to 10x12."}
	orchestrator := newTestOrchestrator(repo, designer, advisor)
	ctx := context.Background()

	resp, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "my budget is $50k"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if resp.Snapshot.Budget.Status != cost.StatusUnder || advisor.calls != 0 {
		t.Fatalf("Expected UNDER without advisor call, got %s (%d calls)", resp.Snapshot.Budget.Status, advisor.calls)
	}

	resp, err = orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "add an office 12x14"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if advisor.calls != 1 {
		t.Fatalf("Expected advisor to be called once, got %d", advisor.calls)
	}
	if advisor.lastReq.Status.Delta != 8800 {
		t.Errorf("Expected overage 8800, got %f", advisor.lastReq.Status.Delta)
	}
	if resp.Suggestions != "Shrink the office to 10x12." {
		t.Errorf("Suggestions should pass through unmodified, got %q", resp.Suggestions)
	}
	if !strings.HasSuffix(resp.Reply, "savings: Shrink the office to 10x12.") {
		t.Errorf("Suggestions should be appended to reply, got %q", resp.Reply)
	}
}

func TestMessageOrchestrator_ProcessMessage_AdvisorFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := newMockRepository()
	designer := &mockDesigner{decisions: []intent.Decision{
		intent.NewDecision(intent.SetBudget, 1.0, "cmd", intent.Fields{"amount": 1000.0}),
		addOffice(),
	}}
	advisor := &mockAdvisor{err: errors.New("rate limited")}
	orchestrator := NewMessageOrchestrator(repo, designer, advisor, stubFormatter{}, zap.New(core), Options{})
	ctx := context.Background()

	orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "/budget 1000"})
	resp, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "/add Office 12x14"})
	if err != nil {
		t.Fatalf("Advisor failure must not fail the turn: %v", err)
	}

	if resp.Suggestions != "" {
		t.Errorf("Expected no suggestions, got %q", resp.Suggestions)
	}
	if resp.Snapshot.Budget.Status != cost.StatusOver {
		t.Errorf("Expected OVER, got %s", resp.Snapshot.Budget.Status)
	}
	if logs.FilterMessage("savings suggestion failed").Len() != 1 {
		t.Errorf("Expected one warning log, got %v", logs.All())
	}
}

func TestMessageOrchestrator_ProcessMessage_AskQuestion(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{
		decisions: []intent.Decision{
			addOffice(),
			intent.NewDecision(intent.AskQuestion, 0.8, "llm", intent.Fields{"question": "What flooring?"}),
		},
		answer: "Engineered hardwood works well in Montreal winters.",
	}
	orchestrator := newTestOrchestrator(repo, designer, nil)
	ctx := context.Background()

	orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "add office"})
	resp, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{SessionID: "s1", UserMessage: "What flooring should I use?"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if resp.Reply != "Engineered hardwood works well in Montreal winters." {
		t.Errorf("Unexpected reply: %q", resp.Reply)
	}
	if designer.lastContext.Summary != "summary: 1 rooms, 58800" {
		t.Errorf("Answer should receive current summary, got %q", designer.lastContext.Summary)
	}
	if len(designer.lastContext.History) != 2 {
		t.Errorf("Answer should receive previous turns, got %d", len(designer.lastContext.History))
	}

	req := designer.lastRequest
	if diff := cmp.Diff([]string{"Office"}, req.RoomNames); diff != "" {
		t.Errorf("Classifier should see room names (-want +got):\n%s", diff)
	}
	if len(req.History) != 2 || !strings.HasPrefix(req.History[0], "user: ") {
		t.Errorf("Classifier should see formatted history, got %v", req.History)
	}
}

func TestMessageOrchestrator_ProcessMessage_AnswerError(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{
		decisions: []intent.Decision{intent.NewDecision(intent.Other, 0.5, "fallback", nil)},
		answerErr: agent.ErrEmptyReply,
	}
	orchestrator := newTestOrchestrator(repo, designer, nil)

	_, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{SessionID: "s1", UserMessage: "hello"})
	if !errors.Is(err, agent.ErrEmptyReply) {
		t.Errorf("Expected ErrEmptyReply, got %v", err)
	}
	if exists, _ := repo.Exists(context.Background(), "s1"); exists {
		t.Error("Conversation should not be saved after a failed turn")
	}
}

func TestMessageOrchestrator_ProcessMessage_DecideError(t *testing.T) {
	repo := newMockRepository()
	designer := &mockDesigner{decideErr: context.Canceled}
	orchestrator := newTestOrchestrator(repo, designer, nil)

	_, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{SessionID: "s1", UserMessage: "hello"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMessageOrchestrator_ProcessMessage_SaveError(t *testing.T) {
	repo := newMockRepository()
	repo.saveErr = errors.New("disk full")
	designer := &mockDesigner{decisions: []intent.Decision{addOffice()}}
	orchestrator := newTestOrchestrator(repo, designer, nil)

	_, err := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{SessionID: "s1", UserMessage: "add office"})
	if err == nil || !strings.Contains(err.Error(), "failed to save conversation") {
		t.Errorf("Expected save error, got %v", err)
	}
}

func TestMessageOrchestrator_StartSessionAndReset(t *testing.T) {
	repo := newMockRepository()
	orchestrator := newTestOrchestrator(repo, &mockDesigner{}, nil)
	ctx := context.Background()

	snap, err := orchestrator.StartSession(ctx, "http")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if !snap.IsEmpty() || snap.Budget.Status != cost.StatusNoBudget {
		t.Errorf("New session should be empty without budget, got %+v", snap)
	}

	if _, err := orchestrator.Snapshot(ctx, snap.SessionID); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if err := orchestrator.Reset(ctx, snap.SessionID); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	_, err = orchestrator.Snapshot(ctx, snap.SessionID)
	if !errors.Is(err, conversation.ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound after reset, got %v", err)
	}
}

func TestMessageOrchestrator_ConcurrentTurnsSameSession(t *testing.T) {
	repo := newMockRepository()
	designer := &lockedDesigner{}
	orchestrator := NewMessageOrchestrator(repo, designer, nil, stubFormatter{}, zap.NewNop(), Options{})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orchestrator.ProcessMessage(ctx, ProcessMessageRequest{
				SessionID:   "shared",
				UserMessage: fmt.Sprintf("add room %d", i),
			})
			if err != nil {
				t.Errorf("ProcessMessage %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := orchestrator.Snapshot(ctx, "shared")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Rooms) != n {
		t.Errorf("Expected %d rooms, got %d", n, len(snap.Rooms))
	}
	if snap.Turns != 2*n {
		t.Errorf("Expected %d turns, got %d", 2*n, snap.Turns)
	}
}

// lockedDesigner はメッセージ内の番号から部屋を追加するスレッドセーフなDesigner
type lockedDesigner struct {
	mu sync.Mutex
}

func (d *lockedDesigner) DecideAction(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := strings.TrimPrefix(t.UserMessage(), "add ")
	return intent.NewDecision(intent.AddRoom, 1.0, "test", intent.Fields{"name": name, "width": 10.0, "length": 10.0}), nil
}

func (d *lockedDesigner) Answer(ctx context.Context, t task.Task, question string, ac agent.AnswerContext) (string, error) {
	return "", nil
}

// blockingDesigner はreleaseが閉じられるまでDecideActionで待つDesigner
// メッセージ本文を部屋名として追加する
type blockingDesigner struct {
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
}

func newBlockingDesigner() *blockingDesigner {
	return &blockingDesigner{
		entered: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (d *blockingDesigner) DecideAction(ctx context.Context, t task.Task, req intent.ClassifyRequest) (intent.Decision, error) {
	d.mu.Lock()
	d.active++
	if d.active > d.maxActive {
		d.maxActive = d.active
	}
	d.mu.Unlock()

	d.entered <- struct{}{}
	<-d.release

	d.mu.Lock()
	d.active--
	d.mu.Unlock()

	return intent.NewDecision(intent.AddRoom, 0.9, "test",
		intent.Fields{"name": t.UserMessage(), "width": 10.0, "length": 10.0}), nil
}

func (d *blockingDesigner) Answer(ctx context.Context, t task.Task, question string, ac agent.AnswerContext) (string, error) {
	return "", nil
}

// waitForLockUsers はセッションロックの利用者（保持者と待機者）がn人になるまで待つ
func waitForLockUsers(t *testing.T, o *MessageOrchestrator, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		o.mu.Lock()
		refs := 0
		if lock, ok := o.locks[sessionID]; ok {
			refs = lock.refs
		}
		o.mu.Unlock()

		if refs >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d users of the session lock, got %d", n, refs)
		}
		time.Sleep(time.Millisecond)
	}
}

func lockCount(o *MessageOrchestrator) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.locks)
}

func TestMessageOrchestrator_LocksAreReleasedAfterUse(t *testing.T) {
	repo := newMockRepository()
	orch := newTestOrchestrator(repo, &mockDesigner{decisions: []intent.Decision{addOffice()}}, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if _, err := orch.Snapshot(ctx, fmt.Sprintf("unknown-%d", i)); !errors.Is(err, conversation.ErrConversationNotFound) {
			t.Fatalf("Expected ErrConversationNotFound, got %v", err)
		}
	}
	if n := lockCount(orch); n != 0 {
		t.Errorf("Expected no lock entries after unknown-id lookups, got %d", n)
	}

	resp, err := orch.ProcessMessage(ctx, ProcessMessageRequest{Channel: "http", UserMessage: "add an office"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if err := orch.Reset(ctx, resp.SessionID); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n := lockCount(orch); n != 0 {
		t.Errorf("Expected no lock entries after turn and reset, got %d", n)
	}
}

func TestMessageOrchestrator_ResetWhileTurnsWait(t *testing.T) {
	repo := newMockRepository()
	designer := newBlockingDesigner()
	orch := NewMessageOrchestrator(repo, designer, nil, stubFormatter{}, nil, Options{})
	ctx := context.Background()

	snap, err := orch.StartSession(ctx, "http")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	id := snap.SessionID

	var wg sync.WaitGroup
	turn := func(message string) {
		defer wg.Done()
		orch.ProcessMessage(ctx, ProcessMessageRequest{SessionID: id, Channel: "http", UserMessage: message})
	}

	wg.Add(1)
	go turn("Office")
	<-designer.entered

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := orch.Reset(ctx, id); err != nil {
			t.Errorf("Reset failed: %v", err)
		}
	}()
	go turn("Den")

	// 実行中のターン + Resetとターンの待機
	waitForLockUsers(t, orch, id, 3)
	close(designer.release)
	wg.Wait()

	if designer.maxActive != 1 {
		t.Errorf("Expected turns on one session to run one at a time, max concurrent %d", designer.maxActive)
	}
	if n := lockCount(orch); n != 0 {
		t.Errorf("Expected no lock entries after all callers finished, got %d", n)
	}
}

func TestMessageOrchestrator_PruneIdleKeepsSessionWithRunningTurn(t *testing.T) {
	repo := newMockRepository()
	designer := newBlockingDesigner()
	orch := NewMessageOrchestrator(repo, designer, nil, stubFormatter{}, nil, Options{})
	ctx := context.Background()

	snap, err := orch.StartSession(ctx, "http")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	id := snap.SessionID

	turnErr := make(chan error, 1)
	go func() {
		_, err := orch.ProcessMessage(ctx, ProcessMessageRequest{SessionID: id, Channel: "http", UserMessage: "Office"})
		turnErr <- err
	}()
	<-designer.entered

	// ターン開始前の更新時刻はcutoffより古い
	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now()
	type pruneResult struct {
		ids []string
		err error
	}
	pruneDone := make(chan pruneResult, 1)
	go func() {
		ids, err := orch.PruneIdle(ctx, cutoff)
		pruneDone <- pruneResult{ids, err}
	}()

	waitForLockUsers(t, orch, id, 2)
	close(designer.release)

	if err := <-turnErr; err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	result := <-pruneDone
	if result.err != nil {
		t.Fatalf("PruneIdle failed: %v", result.err)
	}
	if len(result.ids) != 0 {
		t.Errorf("Expected session with a fresh turn to survive, pruned %v", result.ids)
	}

	got, err := orch.Snapshot(ctx, id)
	if err != nil {
		t.Fatalf("Snapshot after successful turn failed: %v", err)
	}
	if len(got.Rooms) != 1 || got.Rooms[0].Name != "Office" {
		t.Errorf("Expected Office to be kept, got %+v", got.Rooms)
	}
}

func TestMessageOrchestrator_PruneIdle(t *testing.T) {
	repo := newMockRepository()
	orch := newTestOrchestrator(repo, &mockDesigner{decisions: []intent.Decision{addOffice()}}, nil)
	ctx := context.Background()

	old, _ := orch.StartSession(ctx, "http")
	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)
	fresh, _ := orch.StartSession(ctx, "cli")

	pruned, err := orch.PruneIdle(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneIdle failed: %v", err)
	}
	if diff := cmp.Diff([]string{old.SessionID}, pruned); diff != "" {
		t.Errorf("pruned mismatch (-want +got):\n%s", diff)
	}
	if _, err := orch.Snapshot(ctx, fresh.SessionID); err != nil {
		t.Errorf("Expected fresh session to remain, got %v", err)
	}
	if n := lockCount(orch); n != 0 {
		t.Errorf("Expected no lock entries after pruning, got %d", n)
	}
}
