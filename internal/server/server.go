// Package server exposes a bridge adapter over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/metrics"
)

// Subsystem is the tflog subsystem the HTTP bridge logs under.
const Subsystem = "http"

const shutdownTimeout = 10 * time.Second

// Bridge is the set of adapter operations the HTTP bridge serves.
type Bridge interface {
	Name() string
	Count(ctx context.Context, req *ldap.Request) (int64, error)
	Retrieve(ctx context.Context, req *ldap.Request) (*ldap.Record, error)
	Search(ctx context.Context, req *ldap.Request) (*ldap.RecordList, error)
	Structures(ctx context.Context) ([]string, error)
	StructureFields(ctx context.Context, structure string) ([]string, error)
}

var _ Bridge = (*ldap.Adapter)(nil)

// Options configures the HTTP bridge.
type Options struct {
	RateLimit int // requests per minute per client; zero disables limiting
	RateBurst int
	Metrics   *metrics.Metrics // optional; enables /metrics and request metrics
}

// Server routes HTTP requests to a Bridge.
type Server struct {
	bridge Bridge
	router *gin.Engine
}

// New builds the router for bridge.
func New(bridge Bridge, opts Options) *Server {
	s := &Server{
		bridge: bridge,
		router: gin.New(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(RequestIDMiddleware())
	if opts.Metrics != nil {
		s.router.Use(opts.Metrics.Middleware())
	}

	// Health check and metrics are never rate limited.
	s.router.GET("/healthz", s.health)
	if opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := s.router.Group("")
	if opts.RateLimit > 0 {
		api.Use(RateLimitMiddleware(opts.RateLimit, opts.RateBurst))
	}
	api.POST("/count", s.count)
	api.POST("/retrieve", s.retrieve)
	api.POST("/search", s.search)
	api.GET("/structures", s.structures)
	api.GET("/structures/:name", s.structure)

	return s
}

// Handler returns the HTTP handler serving the bridge.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Requests inherit the loggers on ctx but not its cancellation.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		tflog.SubsystemInfo(ctx, Subsystem, "HTTP bridge listening", map[string]any{
			"address": addr,
			"adapter": s.bridge.Name(),
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	tflog.SubsystemInfo(ctx, Subsystem, "Shutting down HTTP bridge")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
