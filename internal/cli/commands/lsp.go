package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/cli/config"
	"github.com/odatakit/odatakit/internal/lsp"
	"github.com/odatakit/odatakit/internal/metadata"
	"github.com/odatakit/odatakit/internal/tooling"
	"github.com/odatakit/odatakit/internal/watch"
)

// NewLSPCommand creates the LSP command
func NewLSPCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the odatakit Language Server Protocol (LSP) server.

This command starts an LSP server that provides IDE integration features including:
  • Diagnostics (query syntax errors)
  • Completion of system query options, entity sets and properties
  • Go-to-definition into metadata files
  • Hover information

The LSP server communicates via JSON-RPC over stdin/stdout.
It is typically started automatically by your editor/IDE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			return runLSP(cmd.Context(), opts, cfg)
		},
	}
}

func runLSP(parent context.Context, opts *Options, cfg *config.Config) error {
	logger, err := newLogger(opts, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	server, stop, err := newLanguageServer(cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	// Set up context with cancellation
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return server.Run(ctx)
}

// newLanguageServer wires the metadata service, the optional file watcher
// and the tooling API into a server. stop releases the watcher.
func newLanguageServer(cfg *config.Config, logger *zap.Logger) (*lsp.Server, func(), error) {
	svc := metadata.NewService(&metadata.Config{
		Map:            cfg.Metadata.Map,
		WorkspaceRoots: cfg.WorkspaceRoots,
		Logger:         logger,
	})

	serverCfg := lsp.Config{
		API:         tooling.NewAPI(svc, logger),
		Logger:      logger,
		Diagnostics: cfg.Diagnostic.Enable,
		Format:      &cfg.Format,
	}

	if !cfg.Metadata.Watch {
		return lsp.NewServer(serverCfg), func() {}, nil
	}

	watcher, err := watch.NewMetadataWatcher(svc.Cache(), metadata.OSFileSystem{}, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.WatchService(svc); err != nil {
		logger.Warn("Failed to watch metadata files", zap.Error(err))
	}
	// client folders may move relative paths elsewhere
	serverCfg.OnInitialize = func(roots []string) {
		if err := watcher.WatchService(svc); err != nil {
			logger.Warn("Failed to watch metadata files", zap.Error(err))
		}
	}
	watcher.Start()

	stop := func() {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Failed to stop file watcher", zap.Error(err))
		}
	}
	return lsp.NewServer(serverCfg), stop, nil
}
