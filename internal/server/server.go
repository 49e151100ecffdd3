package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/config"
	"github.com/ryoshu-dev/ryoshu/internal/history"
	"github.com/ryoshu-dev/ryoshu/internal/model"
	"github.com/ryoshu-dev/ryoshu/internal/ocr"
)

const shutdownTimeout = 5 * time.Second

// Store is what the API needs from the record store.
type Store interface {
	history.Store
	PutAll(ctx context.Context, rs []model.Receipt) error
}

// Options wires a Server.
type Options struct {
	Store     Store
	Extractor ocr.Extractor
	Builder   *capture.Builder
	Activity  *activitylog.Recorder
	Logger    *log.Logger
	Config    config.ServerConfig
	ExportBOM bool
	Now       func() time.Time
}

// Server is the local JSON API over the record store.
type Server struct {
	store     Store
	history   *history.Service
	extractor ocr.Extractor
	builder   *capture.Builder
	activity  *activitylog.Recorder
	logger    *log.Logger
	exportBOM bool
	now       func() time.Time
	engine    *gin.Engine
}

// New builds the gin engine and registers every route.
func New(opts Options) *Server {
	if opts.Extractor == nil {
		opts.Extractor = ocr.Manual{}
	}
	if opts.Builder == nil {
		opts.Builder = capture.NewBuilder(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Config.Mode != "" {
		gin.SetMode(opts.Config.Mode)
	}

	s := &Server{
		store:     opts.Store,
		history:   history.NewService(opts.Store),
		extractor: opts.Extractor,
		builder:   opts.Builder,
		activity:  opts.Activity,
		logger:    opts.Logger,
		exportBOM: opts.ExportBOM,
		now:       opts.Now,
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger))
	if len(opts.Config.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.Config.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", RequestIDHeader},
			ExposeHeaders: []string{"Content-Disposition", RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	api.GET("/healthz", s.healthz)
	api.GET("/categories", s.categories)

	receipts := api.Group("/receipts")
	receipts.GET("", s.listReceipts)
	receipts.GET("/:id", s.getReceipt)
	receipts.POST("", s.createReceipt)
	receipts.POST("/batch", s.commitBatch)
	receipts.PUT("/:id", s.editReceipt)

	api.POST("/extract", s.extract)

	exports := api.Group("/export")
	exports.GET("/csv", s.exportCSV)
	exports.GET("/xlsx", s.exportXLSX)

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) record(action activitylog.Action, receiptID string, count int, details string) {
	if err := s.activity.Record(action, receiptID, count, details); err != nil {
		s.logger.Warn("activity log", "action", action, "err", err)
	}
}
