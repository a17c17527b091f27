// Package lsp implements a Language Server Protocol server for OData query
// documents. It provides diagnostics, completion, go-to-definition, hover
// and formatting backed by the configured metadata documents.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/format"
	"github.com/odatakit/odatakit/internal/tooling"
)

// Version is reported to clients in the initialize result
const Version = "0.1.0"

// TriggerCharacters request completion as they are typed
var TriggerCharacters = []string{".", "=", ",", "(", "/", "'", "$"}

// Config configures a Server
type Config struct {
	// API answers the language requests; it must not be nil
	API *tooling.API

	// Logger receives server logs; stdout is reserved for the protocol
	Logger *zap.Logger

	// Diagnostics enables publishing syntax errors
	Diagnostics bool

	// Format lays out documents for textDocument/formatting; nil follows
	// the client's tab size
	Format *format.Config

	// OnInitialize runs after the client's workspace folders were applied
	// to the metadata service
	OnInitialize func(roots []string)
}

// Server implements the LSP server
type Server struct {
	// api is the tooling API that answers language requests
	api *tooling.API

	// conn is the JSON-RPC connection
	conn jsonrpc2.Conn

	// client is the LSP client interface
	client protocol.Client

	logger *zap.Logger

	diagnostics bool

	onInitialize func(roots []string)

	format *format.Config

	// workspaceRoots are the workspace folders announced by the client
	workspaceRoots []string

	// Server capabilities
	capabilities protocol.ServerCapabilities

	// cancel is used to signal server shutdown
	cancel context.CancelFunc
}

// NewServer creates a new LSP server instance
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	api := cfg.API
	if api == nil {
		api = tooling.NewAPI(nil, logger)
	}

	return &Server{
		api:          api,
		logger:       logger.Named("lsp"),
		diagnostics:  cfg.Diagnostics,
		onInitialize: cfg.OnInitialize,
		format:       cfg.Format,
		capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: TriggerCharacters,
				ResolveProvider:   false,
			},
			HoverProvider: true,
			DefinitionProvider: &protocol.DefinitionOptions{
				WorkDoneProgressOptions: protocol.WorkDoneProgressOptions{
					WorkDoneProgress: false,
				},
			},
			DocumentFormattingProvider: &protocol.DocumentFormattingOptions{
				WorkDoneProgressOptions: protocol.WorkDoneProgressOptions{
					WorkDoneProgress: false,
				},
			},
		},
	}
}

// Run serves the protocol over stdin and stdout until the client exits or
// ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, stdrwc{})
}

// Serve serves the protocol over rwc until the client exits, the stream
// closes, or ctx is cancelled
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger.Info("Starting OData language server", zap.String("version", Version))

	// Create context with cancellation for shutdown
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn
	s.client = protocol.ClientDispatcher(conn, s.logger)

	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.logger.Info("Shutting down OData language server")
	return conn.Close()
}

// WorkspaceRoots returns the workspace folders announced at initialize
func (s *Server) WorkspaceRoots() []string {
	return append([]string(nil), s.workspaceRoots...)
}

// handler returns the JSON-RPC handler function
func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("Received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			return s.handleShutdown(ctx, reply, req)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply, req)
		case protocol.MethodTextDocumentDidOpen:
			return s.handleTextDocumentDidOpen(ctx, reply, req)
		case protocol.MethodTextDocumentDidChange:
			return s.handleTextDocumentDidChange(ctx, reply, req)
		case protocol.MethodTextDocumentDidClose:
			return s.handleTextDocumentDidClose(ctx, reply, req)
		case protocol.MethodTextDocumentDidSave:
			return s.handleTextDocumentDidSave(ctx, reply, req)
		case protocol.MethodTextDocumentCompletion:
			return s.handleTextDocumentCompletion(ctx, reply, req)
		case protocol.MethodTextDocumentHover:
			return s.handleTextDocumentHover(ctx, reply, req)
		case protocol.MethodTextDocumentDefinition:
			return s.handleTextDocumentDefinition(ctx, reply, req)
		case protocol.MethodTextDocumentFormatting:
			return s.handleTextDocumentFormatting(ctx, reply, req)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse initialize params")
	}

	s.workspaceRoots = workspaceRoots(&params)
	s.logger.Info("Initialize",
		zap.Strings("workspace_roots", s.workspaceRoots),
		zap.Any("client", params.ClientInfo))

	// without folders from the client the configured roots stay in effect
	if svc := s.api.Metadata(); svc != nil && len(s.workspaceRoots) > 0 {
		svc.SetWorkspaceRoots(s.workspaceRoots)
	}
	if s.onInitialize != nil {
		s.onInitialize(s.WorkspaceRoots())
	}

	result := protocol.InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name:    "odatakit",
			Version: Version,
		},
	}

	return reply(ctx, result, nil)
}

// workspaceRoots extracts the workspace folders, falling back to the
// deprecated rootUri and rootPath
func workspaceRoots(params *protocol.InitializeParams) []string {
	var roots []string
	for _, folder := range params.WorkspaceFolders {
		if path, ok := filename(string(folder.URI)); ok {
			roots = append(roots, path)
		}
	}
	if len(roots) > 0 {
		return roots
	}
	if path, ok := filename(string(params.RootURI)); ok {
		return []string{path}
	}
	if params.RootPath != "" {
		return []string{params.RootPath}
	}
	return nil
}

// filename converts a file URI to a path. Other schemes are rejected since
// uri.URI.Filename panics on them.
func filename(raw string) (string, bool) {
	if !strings.HasPrefix(raw, uri.FileScheme+"://") {
		return "", false
	}
	return uri.URI(raw).Filename(), true
}

// handleShutdown handles the shutdown request
func (s *Server) handleShutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Info("Shutdown requested")
	return reply(ctx, nil, nil)
}

// handleExit handles the exit notification
func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Info("Exit requested")
	// Reply first, then trigger shutdown
	if err := reply(ctx, nil, nil); err != nil {
		s.logger.Warn("Error replying to exit", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// handleTextDocumentDidOpen handles document open notifications
func (s *Server) handleTextDocumentDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didOpen params")
	}

	docURI := string(params.TextDocument.URI)
	doc := s.api.UpdateDocument(docURI, params.TextDocument.Text, int(params.TextDocument.Version))
	s.logger.Debug("Document opened",
		zap.String("uri", docURI),
		zap.Int("version", doc.Version),
		zap.Int("errors", len(doc.ParseErrors)))

	s.publishDiagnostics(ctx, docURI)

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidChange handles document change notifications
func (s *Server) handleTextDocumentDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didChange params")
	}

	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}

	docURI := string(params.TextDocument.URI)
	// We use full document sync, so take the last change
	content := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.api.UpdateDocument(docURI, content, int(params.TextDocument.Version))

	s.publishDiagnostics(ctx, docURI)

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidClose handles document close notifications
func (s *Server) handleTextDocumentDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didClose params")
	}

	docURI := string(params.TextDocument.URI)
	s.api.CloseDocument(docURI)
	s.logger.Debug("Document closed", zap.String("uri", docURI))

	return reply(ctx, nil, nil)
}

// handleTextDocumentDidSave handles document save notifications
func (s *Server) handleTextDocumentDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didSave params")
	}

	s.publishDiagnostics(ctx, string(params.TextDocument.URI))

	return reply(ctx, nil, nil)
}

// publishDiagnostics publishes diagnostics for a document
func (s *Server) publishDiagnostics(ctx context.Context, docURI string) {
	if !s.diagnostics || s.client == nil {
		return
	}

	diagnostics := s.api.GetDiagnostics(docURI)
	lspDiagnostics := make([]protocol.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		lspDiagnostics = append(lspDiagnostics, protocol.Diagnostic{
			Range:    convertRange(d.Range),
			Severity: convertSeverity(d.Severity),
			Code:     d.Code,
			Source:   d.Source,
			Message:  d.Message,
		})
	}

	params := protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(docURI),
		Diagnostics: lspDiagnostics,
	}

	if err := s.client.PublishDiagnostics(ctx, &params); err != nil {
		s.logger.Warn("Error publishing diagnostics", zap.String("uri", docURI), zap.Error(err))
	}
}

// replyWithError sends an LSP-compliant error response
func (s *Server) replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

// convertSeverity converts tooling diagnostic severity to LSP severity
func convertSeverity(severity tooling.DiagnosticSeverity) protocol.DiagnosticSeverity {
	switch severity {
	case tooling.DiagnosticSeverityError:
		return protocol.DiagnosticSeverityError
	case tooling.DiagnosticSeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case tooling.DiagnosticSeverityInfo:
		return protocol.DiagnosticSeverityInformation
	case tooling.DiagnosticSeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

// stdrwc implements io.ReadWriteCloser for stdin/stdout
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
