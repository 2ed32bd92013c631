package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"MarketBridge/internal/config"
	"MarketBridge/internal/payload"
	"MarketBridge/internal/usecase"
)

// RunLinkRequest starts one pipeline run. A nil auto_publish defers to the
// server default.
type RunLinkRequest struct {
	SourceURL   string `json:"source_url" binding:"required"`
	AutoPublish *bool  `json:"auto_publish"`
}

// RunLinkBatchRequest runs the pipeline over several URLs.
type RunLinkBatchRequest struct {
	SourceURLs  []string `json:"source_urls"`
	AutoPublish *bool    `json:"auto_publish"`
}

// RawPublishRequest pushes a prebuilt payload straight to the marketplace.
type RawPublishRequest struct {
	ProductPayload *payload.Value `json:"product_payload" binding:"required"`
}

// BuildPayloadRequest builds and validates a payload without publishing.
type BuildPayloadRequest struct {
	Title        string         `json:"title" binding:"required"`
	SalePriceKRW int            `json:"sale_price_krw"`
	TemplateHint string         `json:"template_hint"`
	Overrides    *payload.Value `json:"overrides"`
}

// BuildPayloadResponse reports the built payload and its validation state.
type BuildPayloadResponse struct {
	Payload          *payload.Value `json:"payload"`
	TemplateUsed     string         `json:"template_used"`
	ValidationErrors []string       `json:"validation_errors"`
}

// Server is the thin HTTP wrapper over the pipeline use case.
type Server struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
	engine   *gin.Engine
}

// New assembles the router.
func New(cfg config.Config, pipeline *usecase.Pipeline, logger *slog.Logger) *Server {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, pipeline: pipeline, logger: logger}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.health)
	engine.POST("/run-link", s.runLink)
	engine.POST("/run-link-batch", s.runLinkBatch)
	engine.POST("/naver/publish-raw", s.publishRaw)
	engine.POST("/naver/build-payload", s.buildPayload)

	s.engine = engine
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.engine}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if s.logger != nil {
		s.logger.Info("http server listening", "addr", s.cfg.Server.Addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "env": s.cfg.App.Env})
}

func (s *Server) runLink(c *gin.Context) {
	var req RunLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.pipeline.Run(c.Request.Context(), req.SourceURL, req.AutoPublish))
}

func (s *Server) runLinkBatch(c *gin.Context) {
	var req RunLinkBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results := s.pipeline.RunBatch(c.Request.Context(), req.SourceURLs, req.AutoPublish)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) publishRaw(c *gin.Context) {
	var req RawPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.pipeline.PublishRaw(c.Request.Context(), req.ProductPayload))
}

func (s *Server) buildPayload(c *gin.Context) {
	var req BuildPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overrides := req.Overrides
	if overrides != nil && overrides.Kind() != payload.KindObject {
		overrides = nil
	}

	built, validationErrors, templateUsed := s.pipeline.BuildPayload(req.Title, req.SalePriceKRW, overrides, req.TemplateHint)
	if validationErrors == nil {
		validationErrors = []string{}
	}
	c.JSON(http.StatusOK, BuildPayloadResponse{
		Payload:          built,
		TemplateUsed:     templateUsed,
		ValidationErrors: validationErrors,
	})
}
