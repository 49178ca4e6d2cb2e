// Package mcp provides an MCP (Model Context Protocol) server for iac.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/iac/internal/iac"
	"github.com/nvandessel/iac/internal/ratelimit"
	"github.com/nvandessel/iac/internal/store"
)

// Server wraps the MCP SDK server and exposes iac simulations as tools.
type Server struct {
	server      *sdk.Server
	store       store.NetworkStore
	root        string
	model       iac.Config
	logger      *slog.Logger
	auditLogger *AuditLogger
	budgets     ratelimit.ToolBudgets
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "iac")
	Version string // Server version
	Root    string // Project root directory

	// Model holds the default constants for runs; a zero value selects
	// iac.DefaultConfig.
	Model iac.Config

	// Logger receives operational and audit output. Defaults to discarding.
	Logger *slog.Logger
}

// NewServer creates a new MCP server backed by the SQLite store under
// cfg.Root.
func NewServer(cfg *Config) (*Server, error) {
	networkStore, err := store.NewSQLiteNetworkStore(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create network store: %w", err)
	}
	return newServer(cfg, networkStore), nil
}

// newServer creates a server on an existing store, which it takes over.
func newServer(cfg *Config, networkStore store.NetworkStore) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	model := cfg.Model
	if model == (iac.Config{}) {
		model = iac.DefaultConfig()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:      mcpServer,
		store:       networkStore,
		root:        cfg.Root,
		model:       model,
		logger:      logger,
		auditLogger: NewAuditLogger(store.DataDir(cfg.Root), logger),
		budgets:     ratelimit.NewToolBudgets(),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, shutdownSignals...)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			s.logger.Info("shutting down on signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server listening on stdio", "root", s.root)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.auditLogger.Close()
	return s.store.Close()
}
