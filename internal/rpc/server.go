// Package rpc serves the node's JSON-RPC 2.0 read API. Storage-backed
// methods are answered inline; starknet_call and starknet_estimateFee are
// delegated to the executor pool.
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mirovale/cairod/internal/protocol"
)

// PathV02 is the versioned RPC route.
const PathV02 = "/rpc/v0.2"

// maxBodyBytes bounds a single RPC request body.
const maxBodyBytes = 1 << 20

// StateReader answers the storage-backed methods.
type StateReader interface {
	ChainID(ctx context.Context) (string, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockHashAndNumber(ctx context.Context) (string, uint64, error)
	StorageAt(ctx context.Context, contract, key string, blockNumber uint64) (string, error)
}

// CallExecutor submits call requests to the executor pool.
type CallExecutor interface {
	Call(ctx context.Context, req protocol.Request) (*protocol.Response, error)
}

// Config holds RPC server configuration.
type Config struct {
	Listen string
}

// Server is the HTTP front of the node.
type Server struct {
	config Config
	state  StateReader
	pool   CallExecutor
	logger *slog.Logger
	server *http.Server
}

// New creates an RPC server.
func New(config Config, state StateReader, pool CallExecutor, logger *slog.Logger) *Server {
	return &Server{
		config: config,
		state:  state,
		pool:   pool,
		logger: logger,
	}
}

// Start runs the HTTP server until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("rpc_server_starting", "listen", s.config.Listen, "path", PathV02)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("rpc_server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rpc server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("rpc server: %w", err)
	}
}

// Routes builds the HTTP router. Exposed for httptest.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(PathV02, s.handleRPC)

	return r
}

// loggingMiddleware tags each request with a correlation id and logs it.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
		)
	})
}
