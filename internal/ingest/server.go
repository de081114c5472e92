// Package ingest provides the HTTP delivery surface: decoded sample
// batches arrive here and are handed to the dispatcher. The engine
// itself makes no assumption about delivery; this server is the
// runnable surface the binary ships with.
package ingest

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

// Dispatcher is the narrow routing contract required by the delivery
// surfaces.
type Dispatcher interface {
	Process(ctx context.Context, batch []model.Sample) error
}

// Server accepts sample batches over HTTP.
type Server struct {
	addr       string
	dispatcher Dispatcher
	logger     *zap.Logger
	server     *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	startTime  time.Time
}

// NewServer creates a new batch delivery server.
func NewServer(addr string, dispatcher Dispatcher, logger *zap.Logger) *Server {
	if addr == "" {
		addr = "0.0.0.0:8042"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/v1/batch", s.handleBatch)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleBatch decodes a JSON array of samples and routes it. Per-group
// failures never surface here; only an identity resolution failure
// turns into a 503 so the sender can retry the batch later.
func (s *Server) handleBatch(c *gin.Context) {
	var batch []model.Sample
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON batch: " + err.Error()})
		return
	}
	if err := s.dispatcher.Process(c.Request.Context(), batch); err != nil {
		s.logger.Error("batch rejected", zap.Int("samples", len(batch)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(batch)})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}
