// Package server exposes the documentation and code-generation pipelines
// over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/codescribe-ai/codescribe/pkg/config"
	"github.com/codescribe-ai/codescribe/pkg/datastore"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/logging"
	"github.com/codescribe-ai/codescribe/pkg/sandbox"
)

// PipelineFunc runs one job over an unpacked input directory, writing its
// results under outputDir. mode is "documentation" or "code_generation";
// problemStatement is only set for the latter.
type PipelineFunc func(ctx context.Context, mode, inputDir, outputDir, problemStatement string) error

// Server handles HTTP requests for job submission, browsing outputs and
// interactive execution of generated programs.
type Server struct {
	cfg      config.ServerConfig
	engine   *gin.Engine
	logger   logging.Logger
	store    interfaces.JobStore
	manager  *sandbox.Manager
	pipeline PipelineFunc
	tracing  bool
}

// Option represents an option for configuring the server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithJobStore sets the job store
func WithJobStore(store interfaces.JobStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithSandboxManager sets the manager for interactive executions
func WithSandboxManager(manager *sandbox.Manager) Option {
	return func(s *Server) {
		s.manager = manager
	}
}

// WithPipeline sets the function that processes uploaded codebases
func WithPipeline(pipeline PipelineFunc) Option {
	return func(s *Server) {
		s.pipeline = pipeline
	}
}

// WithTracing enables the otelgin middleware
func WithTracing() Option {
	return func(s *Server) {
		s.tracing = true
	}
}

// New creates a server and registers its routes
func New(cfg config.ServerConfig, options ...Option) *Server {
	server := &Server{
		cfg:     cfg,
		store:   datastore.NewInMemoryStore(),
		manager: sandbox.NewManager(),
	}

	for _, option := range options {
		option(server)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if server.logger != nil {
		engine.Use(server.requestLogger())
	}
	if server.tracing {
		engine.Use(otelgin.Middleware("codescribe"))
	}

	server.engine = engine
	server.registerRoutes()

	return server
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.POST("/generate", s.handleGenerate)
	api.GET("/jobs", s.handleListJobs)
	api.GET("/jobs/:id", s.handleGetJob)

	// A catch-all and a bare /files route cannot coexist in gin's tree;
	// an empty path lists the directory instead.
	api.GET("/outputs/:id/files/*path", s.handleOutputFiles)
	api.GET("/outputs/:id/archive", s.handleGetArchive)
	api.POST("/outputs/:id/run", s.handleRun)

	api.GET("/executions/:id/output", s.handleExecutionOutput)
	api.POST("/executions/:id/input", s.handleExecutionInput)
	api.POST("/executions/:id/stop", s.handleExecutionStop)
}

// Handler returns the underlying HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server on the configured address and blocks until ctx is
// cancelled, then shuts down within the configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	s.manager.StopAll(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "Request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
