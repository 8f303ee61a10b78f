// Package server exposes the tour store, storage slots, media and live viewer
// sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/media"
	"github.com/tour360/editor/internal/metrics"
	"github.com/tour360/editor/internal/storage"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

// Dependencies holds everything the routes need.
type Dependencies struct {
	Store   *tour.Store
	Storage storage.Backend
	Slot    string
	Media   *media.Preparer
	Viewer  config.ViewerConfig
	Config  config.ServerConfig
	Logger  *slog.Logger

	// EventSinks receive the domain events of every viewer session.
	EventSinks []func(core.Event)
}

// Server is the HTTP API.
type Server struct {
	deps     Dependencies
	log      *slog.Logger
	router   *gin.Engine
	upgrader ws.Upgrader

	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// New builds the router.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Slot == "" {
		deps.Slot = storage.DefaultSlot
	}
	if deps.Config.WSPath == "" {
		deps.Config.WSPath = "/ws"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:   deps,
		log:    deps.Logger.With("component", "server"),
		ctx:    ctx,
		cancel: cancel,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), corsMiddleware(s.deps.Config.CORSOrigins))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/media/:name", s.getMedia)
	r.GET(s.deps.Config.WSPath, s.viewerSession)

	api := r.Group("/api")
	{
		api.GET("/tour", s.getTour)
		api.PUT("/tour/name", s.renameTour)
		api.GET("/tour/export", s.exportTour)
		api.POST("/tour/import", s.importTour)
		api.POST("/tour/save", s.saveTour)
		api.POST("/tour/load", s.loadTour)

		api.POST("/scenes", s.addScene)
		api.PUT("/scenes/:id", s.updateScene)
		api.DELETE("/scenes/:id", s.removeScene)
		api.POST("/scenes/:id/current", s.setCurrentScene)
		api.POST("/scenes/:id/hotspots", s.addHotSpot)
		api.DELETE("/scenes/:id/hotspots/:hid", s.removeHotSpot)

		api.GET("/visited", s.getVisited)
		api.POST("/visited", s.markVisited)
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		ExposeHeaders: []string{"Content-Type", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// requestLog records every request in the log and the HTTP collectors.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		latency := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(code)).Inc()
		metrics.HTTPLatency.WithLabelValues(route).Observe(float64(latency.Milliseconds()))

		attrs := []any{"method", c.Request.Method, "path", c.Request.URL.Path, "status", code, "duration", latency}
		if err := c.Errors.Last(); err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		s.log.Debug("HTTP request", attrs...)
	}
}

// Run serves on addr until ctx ends, then drains open requests and viewer
// sessions.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close ends every open viewer session and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.sessions.Wait()
}

func (s *Server) engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	v := s.deps.Viewer
	if v.HFOV > 0 {
		cfg.HFOV = v.HFOV
	}
	if v.MinHFOV > 0 {
		cfg.MinHFOV = v.MinHFOV
	}
	if v.MaxHFOV > 0 {
		cfg.MaxHFOV = v.MaxHFOV
	}
	if v.Friction > 0 {
		cfg.Friction = v.Friction
	}
	cfg.DoubleClickZoom = v.DoubleClickZoom
	return cfg
}
