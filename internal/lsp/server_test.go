package lsp

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/odatakit/odatakit/internal/format"
	"github.com/odatakit/odatakit/internal/metadata"
	"github.com/odatakit/odatakit/internal/tooling"
)

const northwindRoot = "https://services.odata.org/V4/Northwind/Northwind.svc"

type testClient struct {
	conn        jsonrpc2.Conn
	server      *Server
	diagnostics chan protocol.PublishDiagnosticsParams
	done        chan error
}

func newNorthwindAPI(t *testing.T) *tooling.API {
	t.Helper()
	path, err := filepath.Abs("../../testdata/metadata/northwind.xml")
	require.NoError(t, err)
	svc := metadata.NewService(&metadata.Config{
		Map: []metadata.MapEntry{{URL: northwindRoot, Path: path}},
	})
	return tooling.NewAPI(svc, nil)
}

// startServer serves a Server over an in-memory pipe and returns the client end
func startServer(t *testing.T, api *tooling.API) *testClient {
	t.Helper()
	return startServerWith(t, Config{API: api, Diagnostics: true})
}

func startServerWith(t *testing.T, cfg Config) *testClient {
	t.Helper()

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	tc := &testClient{
		server:      NewServer(cfg),
		diagnostics: make(chan protocol.PublishDiagnosticsParams, 16),
		done:        make(chan error, 1),
	}
	go func() { tc.done <- tc.server.Serve(ctx, serverSide) }()

	tc.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	tc.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == "textDocument/publishDiagnostics" {
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &params); err == nil {
				tc.diagnostics <- params
			}
		}
		return reply(ctx, nil, nil)
	})

	t.Cleanup(func() {
		cancel()
		_ = tc.conn.Close()
		select {
		case <-tc.done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return tc
}

func (tc *testClient) open(t *testing.T, uri, text string) {
	t.Helper()
	err := tc.conn.Notify(context.Background(), protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: "odata",
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
}

func (tc *testClient) nextDiagnostics(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-tc.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
		return protocol.PublishDiagnosticsParams{}
	}
}

func TestServerInitialization(t *testing.T) {
	server := NewServer(Config{})
	require.NotNil(t, server)
	assert.NotNil(t, server.api)
	assert.NotNil(t, server.logger)
	assert.False(t, server.diagnostics)

	caps := server.capabilities
	require.NotNil(t, caps.CompletionProvider)
	assert.Equal(t, []string{".", "=", ",", "(", "/", "'", "$"}, caps.CompletionProvider.TriggerCharacters)
	assert.NotNil(t, caps.DefinitionProvider)
	assert.Equal(t, true, caps.HoverProvider)
	assert.NotNil(t, caps.DocumentFormattingProvider)
}

func TestInitialize(t *testing.T) {
	api := newNorthwindAPI(t)
	tc := startServer(t, api)

	var result protocol.InitializeResult
	_, err := tc.conn.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: "file:///work/space", Name: "space"},
			{URI: "file:///work/other", Name: "other"},
		},
	}, &result)
	require.NoError(t, err)

	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "odatakit", result.ServerInfo.Name)
	assert.Equal(t, Version, result.ServerInfo.Version)

	assert.Equal(t, []string{filepath.FromSlash("/work/space"), filepath.FromSlash("/work/other")}, tc.server.WorkspaceRoots())
	assert.Equal(t,
		filepath.Join(filepath.FromSlash("/work/space"), "metadata/northwind.xml"),
		api.Metadata().ResolvePath(metadata.MapEntry{URL: northwindRoot, Path: "metadata/northwind.xml"}))
}

func TestInitializeCallback(t *testing.T) {
	api := newNorthwindAPI(t)
	api.Metadata().SetWorkspaceRoots([]string{"/configured"})

	got := make(chan []string, 1)
	tc := startServerWith(t, Config{
		API:          api,
		OnInitialize: func(roots []string) { got <- roots },
	})

	var result protocol.InitializeResult
	_, err := tc.conn.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{}, &result)
	require.NoError(t, err)

	select {
	case roots := <-got:
		assert.Empty(t, roots)
	case <-time.After(5 * time.Second):
		t.Fatal("OnInitialize was not called")
	}

	entry := metadata.MapEntry{URL: northwindRoot, Path: "northwind.xml"}
	assert.Equal(t, filepath.Join("/configured", "northwind.xml"), api.Metadata().ResolvePath(entry),
		"a client without folders keeps the configured roots")
}

func TestWorkspaceRootsFallback(t *testing.T) {
	tests := []struct {
		name   string
		params protocol.InitializeParams
		want   []string
	}{
		{name: "none", params: protocol.InitializeParams{}, want: nil},
		{name: "root uri", params: protocol.InitializeParams{RootURI: "file:///srv/queries"}, want: []string{filepath.FromSlash("/srv/queries")}},
		{name: "root path", params: protocol.InitializeParams{RootPath: "/srv/legacy"}, want: []string{"/srv/legacy"}},
		{
			name: "non-file folders are skipped",
			params: protocol.InitializeParams{
				WorkspaceFolders: []protocol.WorkspaceFolder{{URI: "untitled:Untitled-1"}},
				RootPath:         "/srv/legacy",
			},
			want: []string{"/srv/legacy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workspaceRoots(&tt.params))
		})
	}
}

func TestPublishDiagnostics(t *testing.T) {
	tc := startServer(t, newNorthwindAPI(t))

	tc.open(t, "file:///bad.odata", northwindRoot+"/Customers?$filter=Name eq 'abc")

	params := tc.nextDiagnostics(t)
	assert.Equal(t, protocol.DocumentURI("file:///bad.odata"), params.URI)
	require.Len(t, params.Diagnostics, 1)
	d := params.Diagnostics[0]
	assert.Equal(t, "E005", d.Code)
	assert.Equal(t, "odata", d.Source)
	assert.Equal(t, protocol.DiagnosticSeverityError, d.Severity)
	assert.Equal(t, uint32(0), d.Range.Start.Line)

	err := tc.conn.Notify(context.Background(), protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///bad.odata"},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: northwindRoot + "/Customers?$filter=Name eq 'abc'"},
		},
	})
	require.NoError(t, err)

	params = tc.nextDiagnostics(t)
	assert.Empty(t, params.Diagnostics)
}

func TestCompletionRequest(t *testing.T) {
	tc := startServer(t, newNorthwindAPI(t))
	text := northwindRoot + "/Customers?$select="
	tc.open(t, "file:///q.odata", text)
	tc.nextDiagnostics(t)

	var list protocol.CompletionList
	_, err := tc.conn.Call(context.Background(), protocol.MethodTextDocumentCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q.odata"},
			Position:     protocol.Position{Line: 0, Character: uint32(len(text))},
		},
	}, &list)
	require.NoError(t, err)

	var labels []string
	for _, item := range list.Items {
		labels = append(labels, item.Label)
		assert.Equal(t, protocol.CompletionItemKindProperty, item.Kind)
	}
	assert.Contains(t, labels, "CustomerID")
	assert.Contains(t, labels, "CompanyName")
}

func TestHoverAndDefinitionRequests(t *testing.T) {
	tc := startServer(t, newNorthwindAPI(t))
	tc.open(t, "file:///q.odata", northwindRoot+"/Customers?$top=1")
	tc.nextDiagnostics(t)

	pos := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q.odata"},
		Position:     protocol.Position{Line: 0, Character: uint32(len(northwindRoot) + 3)},
	}

	var hover protocol.Hover
	_, err := tc.conn.Call(context.Background(), protocol.MethodTextDocumentHover, &protocol.HoverParams{
		TextDocumentPositionParams: pos,
	}, &hover)
	require.NoError(t, err)
	assert.Equal(t, protocol.Markdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "**EntitySet**: Customers")

	var locations []protocol.Location
	_, err = tc.conn.Call(context.Background(), protocol.MethodTextDocumentDefinition, &protocol.DefinitionParams{
		TextDocumentPositionParams: pos,
	}, &locations)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, uint32(21), locations[0].Range.Start.Line)
	assert.Equal(t, uint32(6), locations[0].Range.Start.Character)
}

func TestFormattingRequest(t *testing.T) {
	tests := []struct {
		name string
		cfg  *format.Config
		want string
	}{
		{"client tab size", nil, "https://h/svc\n    ?$top=1\n"},
		{"configured layout", &format.Config{IndentSize: 1}, "https://h/svc\n ?$top=1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := startServerWith(t, Config{API: newNorthwindAPI(t), Format: tt.cfg})
			tc.open(t, "file:///q.odata", "https://h/svc?$top=1")

			var edits []protocol.TextEdit
			_, err := tc.conn.Call(context.Background(), protocol.MethodTextDocumentFormatting, &protocol.DocumentFormattingParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q.odata"},
				Options:      protocol.FormattingOptions{TabSize: 4, InsertSpaces: true},
			}, &edits)
			require.NoError(t, err)
			require.Len(t, edits, 1)
			assert.Equal(t, tt.want, edits[0].NewText)
			assert.Equal(t, protocol.Position{Line: 0, Character: 20}, edits[0].Range.End)
		})
	}
}

func TestUnknownMethod(t *testing.T) {
	tc := startServer(t, newNorthwindAPI(t))

	var result any
	_, err := tc.conn.Call(context.Background(), "workspace/symbol", map[string]string{"query": "x"}, &result)
	assert.Error(t, err)
}

func TestExitStopsServer(t *testing.T) {
	tc := startServer(t, newNorthwindAPI(t))

	require.NoError(t, tc.conn.Notify(context.Background(), protocol.MethodExit, nil))

	select {
	case err := <-tc.done:
		tc.done <- err // let cleanup observe the stop
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}

func TestConvertSeverity(t *testing.T) {
	tests := []struct {
		name     string
		input    tooling.DiagnosticSeverity
		expected protocol.DiagnosticSeverity
	}{
		{"Error severity", tooling.DiagnosticSeverityError, protocol.DiagnosticSeverityError},
		{"Warning severity", tooling.DiagnosticSeverityWarning, protocol.DiagnosticSeverityWarning},
		{"Info severity", tooling.DiagnosticSeverityInfo, protocol.DiagnosticSeverityInformation},
		{"Hint severity", tooling.DiagnosticSeverityHint, protocol.DiagnosticSeverityHint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertSeverity(tt.input))
		})
	}
}
