package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/export"
	"github.com/Nyukimin/housedesign_agent/internal/adapter/render"
	"github.com/Nyukimin/housedesign_agent/internal/application/orchestrator"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
)

// Channel はREPL経由の会話のチャネル名
const Channel = "cli"

const helpText = `### Commands

- ` + "`/rooms`" + ` show the current floorplan and budget
- ` + "`/export <file.xlsx>`" + ` save the cost workbook
- ` + "`/reset`" + ` clear the chat and start a new design
- ` + "`/help`" + ` show this help
- ` + "`exit`" + `, ` + "`quit`" + ` or ` + "`q`" + ` leave

Shortcuts: ` + "`/add Office 12x14 floor 2 type office`" + `, ` + "`/remove garage`" + `, ` + "`/update kitchen 14x16`" + `, ` + "`/budget 650k`" + `, ` + "`/ask <question>`" + `

Anything else is sent to the design assistant, e.g. *"Add a 12 by 14 office"* or *"My budget is $650,000"*.`

// Orchestrator はメッセージ処理のインターフェース
type Orchestrator interface {
	ProcessMessage(ctx context.Context, req orchestrator.ProcessMessageRequest) (orchestrator.ProcessMessageResponse, error)
	Snapshot(ctx context.Context, sessionID string) (conversation.Snapshot, error)
	Reset(ctx context.Context, sessionID string) error
}

// LineReader は1行ずつ入力を読むインターフェース（readline.Instance互換）
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// REPL は対話ループ
type REPL struct {
	orchestrator Orchestrator
	reader       LineReader
	out          io.Writer
	renderer     Renderer
	summary      *render.Markdown
	logger       *zap.Logger
	sessionID    string
}

// NewREPL は新しいREPLを作成
func NewREPL(orch Orchestrator, reader LineReader, out io.Writer, renderer Renderer, logger *zap.Logger) *REPL {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &REPL{
		orchestrator: orch,
		reader:       reader,
		out:          out,
		renderer:     renderer,
		summary:      render.NewMarkdown(),
		logger:       logger,
	}
}

// NewReadline はプロンプトと履歴ファイル付きのreadlineを作成
func NewReadline(prompt, historyFile string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return rl, nil
}

// SessionID は現在のセッションIDを返す（未開始なら空）
func (r *REPL) SessionID() string {
	return r.sessionID
}

// Run は入力が終わるか終了コマンドまでループする
func (r *REPL) Run(ctx context.Context) error {
	defer r.reader.Close()

	r.printMarkdown("## House design assistant\n\nDescribe the rooms you want and your budget. Type `/help` for commands.")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := r.reader.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				// 入力途中のCtrl+Cは行の破棄のみ
				if line != "" {
					continue
				}
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if quit := r.HandleLine(ctx, line); quit {
			return nil
		}
	}
}

// HandleLine は1行を処理し、終了すべきならtrueを返す
func (r *REPL) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(command) {
	case "exit", "quit", "q":
		if arg == "" {
			fmt.Fprintln(r.out, "Goodbye!")
			return true
		}
	case "/help":
		r.printMarkdown(helpText)
		return false
	case "/reset":
		r.reset(ctx)
		return false
	case "/rooms":
		r.showRooms(ctx)
		return false
	case "/export":
		r.export(ctx, arg)
		return false
	}

	r.send(ctx, line)
	return false
}

func (r *REPL) send(ctx context.Context, message string) {
	resp, err := r.orchestrator.ProcessMessage(ctx, orchestrator.ProcessMessageRequest{
		SessionID:   r.sessionID,
		Channel:     Channel,
		UserMessage: message,
	})
	if err != nil {
		r.logger.Debug("turn failed", zap.String("session_id", r.sessionID), zap.Error(err))
		r.printError(err)
		return
	}

	r.sessionID = resp.SessionID
	r.printMarkdown(resp.Reply)
	if resp.Intent.IsMutation() {
		fmt.Fprintln(r.out, BudgetBadge(resp.Snapshot.Budget))
	}
}

func (r *REPL) reset(ctx context.Context) {
	if r.sessionID != "" {
		if err := r.orchestrator.Reset(ctx, r.sessionID); err != nil {
			r.printError(err)
			return
		}
	}
	r.sessionID = ""
	fmt.Fprintln(r.out, "Chat cleared. Starting a new design.")
}

func (r *REPL) showRooms(ctx context.Context) {
	snapshot, ok := r.snapshot(ctx)
	if !ok {
		return
	}
	r.printMarkdown(r.summary.Summary(snapshot))
	fmt.Fprintln(r.out, BudgetBadge(snapshot.Budget))
}

func (r *REPL) export(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(r.out, "Usage: /export <file.xlsx>")
		return
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}

	snapshot, ok := r.snapshot(ctx)
	if !ok {
		return
	}
	if err := export.SaveFile(path, snapshot); err != nil {
		r.printError(err)
		return
	}
	fmt.Fprintf(r.out, "Saved cost workbook to %s\n", path)
}

// snapshot は現在の状態を返す（未開始なら案内を出してfalse）
func (r *REPL) snapshot(ctx context.Context) (conversation.Snapshot, bool) {
	if r.sessionID == "" {
		fmt.Fprintln(r.out, "No rooms in the floorplan yet.")
		return conversation.Snapshot{}, false
	}
	snapshot, err := r.orchestrator.Snapshot(ctx, r.sessionID)
	if err != nil {
		r.printError(err)
		return conversation.Snapshot{}, false
	}
	return snapshot, true
}

func (r *REPL) printMarkdown(markdown string) {
	out, err := r.renderer.Render(markdown)
	if err != nil {
		r.logger.Debug("markdown render failed", zap.Error(err))
		out = markdown
	}
	fmt.Fprintln(r.out, strings.TrimRight(out, "\n"))
}

func (r *REPL) printError(err error) {
	fmt.Fprintln(r.out, errorStyle.Render(render.ErrorMessage(err)))
}
