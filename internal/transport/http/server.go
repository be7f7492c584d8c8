package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandevgo/shopbot/internal/config"
	"github.com/sandevgo/shopbot/pkg/log"
)

type Deps struct {
	Chat      Chatter
	Images    ImageSearcher
	Reindexer Reindexer
	Products  ProductReader
}

// Server exposes the shop assistant over HTTP. It implements srv.Service.
type Server struct {
	cfg    *config.HTTPConfig
	server *http.Server
}

func NewServer(ctx context.Context, cfg *config.HTTPConfig, deps Deps) *Server {
	h := &Handlers{
		chat:      deps.Chat,
		images:    deps.Images,
		reindexer: deps.Reindexer,
		products:  deps.Products,
		maxUpload: cfg.MaxUploadBytes,
	}

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(ctx, h),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			BaseContext:  func(net.Listener) context.Context { return ctx },
		},
	}
}

func NewRouter(ctx context.Context, h *Handlers) *gin.Engine {
	if !log.FromCtx(ctx).Debug().Enabled() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.DELETE("/chat/history/:id", h.ClearHistory)
		api.GET("/conversations/:id", h.GetConversation)

		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.POST("/products/image-search", h.ImageSearch)

		api.POST("/admin/reseed-and-reindex", h.ReseedAndReindex)
	}

	return router
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request through the context logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := log.FromCtx(c.Request.Context())
		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
