package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions はルーター設定
type RouterOptions struct {
	CORSOrigins []string
}

// NewRouter はAPIのルーティングを設定したgin.Engineを返す
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.logger))

	if len(opts.CORSOrigins) > 0 {
		corsConfig := cors.Config{
			AllowMethods: []string{"GET", "POST", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}
		if len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*" {
			corsConfig.AllowAllOrigins = true
		} else {
			corsConfig.AllowOrigins = opts.CORSOrigins
		}
		r.Use(cors.New(corsConfig))
	}

	r.GET("/health", h.handleHealth)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.handleCreateSession)
		sessions.GET("/:id", h.handleGetSession)
		sessions.DELETE("/:id", h.handleDeleteSession)
		sessions.POST("/:id/messages", h.handlePostMessage)
		sessions.GET("/:id/export", h.handleExport)
	}

	return r
}
