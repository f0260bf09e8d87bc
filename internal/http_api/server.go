package http_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/internal/scanner"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// Store is the read side of the repository the API serves from.
type Store interface {
	models.DepositReader
	GetCheckpointRecord(ctx context.Context, source string) (*models.Checkpoint, error)
}

// StateReporter exposes the scanner state on the checkpoint endpoint.
type StateReporter interface {
	State() scanner.State
}

// Options carries the static settings of the API.
type Options struct {
	Port   int
	Source string
	Vault  common.Address
	Token  models.TokenMetadata
	// Gatherer backs /metrics; the route is not registered when nil.
	Gatherer prometheus.Gatherer
}

// HTTPServer is the HTTP server struct that will serve the API
type HTTPServer struct {
	// logger is the logger instance
	logger *logger.Logger

	// router is the HTTP router
	router *gin.Engine
	// server is the underlying HTTP server
	server *http.Server

	opts Options

	store  Store
	tokens models.TokenService
	state  StateReporter
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NewHTTPServer creates a new HTTP server instance. tokens and state may be nil
// when the watcher is disabled.
func NewHTTPServer(opts Options, store Store, tokens models.TokenService, state StateReporter, logger *logger.Logger) *HTTPServer {
	router := gin.Default()

	// Add CORS middleware
	router.Use(corsMiddleware())

	s := &HTTPServer{
		logger: logger,
		router: router,
		opts:   opts,
		store:  store,
		tokens: tokens,
		state:  state,
	}

	// Define routes
	s.routes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%v", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves HTTP until Shutdown is called. It returns nil after a graceful
// shutdown, including one that happened before Start.
func (s *HTTPServer) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start the HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
