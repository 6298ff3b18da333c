// Package api wraps the Discovery and admin HTTP routers in an
// http.Server with the teacher's listen/shutdown lifecycle.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blockwatch-labs/tzindexer/internal/api/handler"
	"github.com/blockwatch-labs/tzindexer/internal/metadata"
	"github.com/blockwatch-labs/tzindexer/internal/query"
	"go.uber.org/zap"
)

// Server wraps the HTTP server for the Discovery + admin API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the router from meta/engineFor/keys/admin and wraps it
// in an http.Server bound to addr.
func NewServer(meta *metadata.Service, engineFor func(platform, network string) (*query.Engine, bool), keys handler.KeyValidator, adminToken string, admin *handler.AdminStore, logger *zap.Logger, addr string) *Server {
	h := handler.NewHandler(meta, engineFor, keys, adminToken, admin, logger)
	router := h.NewRouter()

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{httpServer: server, logger: logger}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting HTTP API server", zap.String("addr", s.httpServer.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
