// Package server is the HTTP surface of snapforge: the upload, process,
// metadata and health APIs plus static serving of the public tree.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/magick"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/snapforge/snapforge/pkg/metrics"
	"github.com/snapforge/snapforge/pkg/ratelimit"
	"github.com/snapforge/snapforge/pkg/storage"
	"github.com/snapforge/snapforge/pkg/validate"
	"github.com/snapforge/snapforge/pkg/version"
)

const shutdownGrace = 10 * time.Second

// Config carries the runtime knobs the HTTP layer needs, already parsed.
type Config struct {
	MaxUploadBytes int64
	RateMax        int
	RateWindow     time.Duration
	RetentionAge   time.Duration
	AllowOrigins   []string
	TrustedProxies []string
}

// Server wires handlers, middleware and static routes onto one gin engine.
type Server struct {
	conf      Config
	area      *storage.Area
	conv      magick.Converter
	validator *validate.Validator
	limiter   ratelimit.Store
	stats     *metrics.ConversionMetrics
	logger    *logging.Logger
	engine    *gin.Engine
}

// New assembles the full router. The converter backend decides how images
// are actually processed; everything else hangs off conf and area.
func New(conf Config, area *storage.Area, conv magick.Converter, logger *logging.Logger) *Server {
	if os.Getenv("DEBUG") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		conf:      conf,
		area:      area,
		conv:      conv,
		validator: validate.New(conf.MaxUploadBytes),
		limiter:   ratelimit.NewMemoryStore(conf.RateMax, conf.RateWindow),
		stats:     metrics.New(),
		logger:    logger,
		engine:    gin.New(),
	}
	s.registerRoutes()

	return s
}

// Engine exposes the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	r := s.engine

	r.Use(gin.Recovery())
	r.Use(RequestID(s.logger))
	r.Use(RequestLog())
	r.Use(SecurityHeaders())
	r.Use(cors.New(s.corsConfig()))

	if len(s.conf.TrustedProxies) > 0 {
		r.ForwardedByClientIP = true
		if err := r.SetTrustedProxies(s.conf.TrustedProxies); err != nil {
			s.logger.Error("unable to set trusted proxies", "error", err)
		}
	} else if err := r.SetTrustedProxies(nil); err != nil {
		s.logger.Error("unable to clear trusted proxies", "error", err)
	}

	api := r.Group("/api")
	api.POST("/upload", RateLimit(s.limiter), s.UploadHandler())
	api.OPTIONS("/upload", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.POST("/process", s.ProcessHandler())
	api.POST("/metadata", s.MetadataHandler())
	api.GET("/health", s.HealthHandler())
	api.GET("/stats", s.StatsHandler())

	uploads := gin.WrapH(http.StripPrefix("/uploads", http.FileServer(s.area.UploadsHTTPFS())))
	r.GET("/uploads/*filepath", uploads)
	r.HEAD("/uploads/*filepath", uploads)

	processed := gin.WrapH(http.StripPrefix("/processed", http.FileServer(s.area.ProcessedHTTPFS())))
	r.GET("/processed/*filepath", processed)
	r.HEAD("/processed/*filepath", processed)
}

func (s *Server) corsConfig() cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	origins := s.conf.AllowOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
	}

	return conf
}

// HealthHandler reports liveness plus the active converter backend.
func (s *Server) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version.Version,
			Backend: s.conv.Name(),
		})
	}
}

// StatsHandler reports conversion counters and latency per output format
// since the process started.
func (s *Server) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.stats.Snapshot())
	}
}

// Start serves on addr until ctx is cancelled, then drains connections for
// up to shutdownGrace before returning.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(messages.MsgServerStarting, "addr", addr, "backend", s.conv.Name(), "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(messages.MsgServerShuttingDown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		<-errCh
		s.logger.Info(messages.MsgServerStopped)
		return nil
	}
}
