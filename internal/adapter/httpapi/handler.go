package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/export"
	"github.com/Nyukimin/housedesign_agent/internal/adapter/render"
	"github.com/Nyukimin/housedesign_agent/internal/application/orchestrator"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/infrastructure/health"
)

// Channel はHTTP経由の会話のチャネル名
const Channel = "http"

// Orchestrator はメッセージ処理のインターフェース
type Orchestrator interface {
	StartSession(ctx context.Context, channel string) (conversation.Snapshot, error)
	ProcessMessage(ctx context.Context, req orchestrator.ProcessMessageRequest) (orchestrator.ProcessMessageResponse, error)
	Snapshot(ctx context.Context, sessionID string) (conversation.Snapshot, error)
	Reset(ctx context.Context, sessionID string) error
}

// HealthChecker はヘルスチェックのインターフェース
type HealthChecker interface {
	Run() health.Report
}

// Handler はHTTP APIハンドラー
type Handler struct {
	orchestrator Orchestrator
	checker      HealthChecker
	summary      *render.Markdown
	logger       *zap.Logger
}

// NewHandler は新しいHandlerを作成
func NewHandler(orch Orchestrator, checker HealthChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orchestrator: orch,
		checker:      checker,
		summary:      render.NewMarkdown(),
		logger:       logger,
	}
}

// messageRequest はメッセージ送信のリクエストボディ
type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

// sessionResponse は会話状態のレスポンス
type sessionResponse struct {
	SessionID string                `json:"session_id"`
	Summary   string                `json:"summary"`
	Snapshot  conversation.Snapshot `json:"snapshot"`
}

// messageResponse はメッセージ処理のレスポンス
type messageResponse struct {
	SessionID   string                `json:"session_id"`
	Reply       string                `json:"reply"`
	Intent      string                `json:"intent"`
	Confidence  float64               `json:"confidence"`
	JobID       string                `json:"job_id"`
	Suggestions string                `json:"suggestions,omitempty"`
	Snapshot    conversation.Snapshot `json:"snapshot"`
}

// errorResponse はエラーレスポンス
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleHealth はヘルスチェック
func (h *Handler) handleHealth(c *gin.Context) {
	if h.checker == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	report := h.checker.Run()
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// handleCreateSession は新しい会話を開始
func (h *Handler) handleCreateSession(c *gin.Context) {
	snapshot, err := h.orchestrator.StartSession(c.Request.Context(), Channel)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.sessionResponse(snapshot))
}

// handleGetSession は会話の現在の状態を返す
func (h *Handler) handleGetSession(c *gin.Context) {
	snapshot, err := h.orchestrator.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(snapshot))
}

// handleDeleteSession は会話を破棄
func (h *Handler) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.orchestrator.Snapshot(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.orchestrator.Reset(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handlePostMessage はメッセージを処理
func (h *Handler) handlePostMessage(c *gin.Context) {
	id := c.Param("id")

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:   err.Error(),
			Message: "request body must be JSON with a non-empty \"message\"",
		})
		return
	}

	// 未知のセッションは暗黙に作成しない
	if _, err := h.orchestrator.Snapshot(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	resp, err := h.orchestrator.ProcessMessage(c.Request.Context(), orchestrator.ProcessMessageRequest{
		SessionID:   id,
		Channel:     Channel,
		UserMessage: req.Message,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		SessionID:   resp.SessionID,
		Reply:       resp.Reply,
		Intent:      resp.Intent.String(),
		Confidence:  resp.Confidence,
		JobID:       resp.JobID,
		Suggestions: resp.Suggestions,
		Snapshot:    resp.Snapshot,
	})
}

// handleExport は費用ワークブックを返す
func (h *Handler) handleExport(c *gin.Context) {
	id := c.Param("id")
	snapshot, err := h.orchestrator.Snapshot(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=housedesign-%s.xlsx", id))
	c.Status(http.StatusOK)

	if err := export.Write(c.Writer, snapshot); err != nil {
		h.logger.Error("export failed", zap.String("session_id", id), zap.Error(err))
	}
}

func (h *Handler) sessionResponse(s conversation.Snapshot) sessionResponse {
	return sessionResponse{
		SessionID: s.SessionID,
		Summary:   h.summary.Summary(s),
		Snapshot:  s,
	}
}

// writeError はドメインエラーをHTTPステータスに対応付けて返す
func (h *Handler) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(status, errorResponse{
		Error:   err.Error(),
		Message: render.ErrorMessage(err),
	})
}

// StatusFor はエラーに対応するHTTPステータスを返す
func StatusFor(err error) int {
	switch {
	case errors.Is(err, floorplan.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, floorplan.ErrNotFound), errors.Is(err, conversation.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, floorplan.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger はリクエストをzapで記録するミドルウェア
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
