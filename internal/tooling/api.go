// Package tooling provides a programmatic API for IDE integration via LSP.
// It keeps parsed query documents and answers diagnostics, completion,
// definition and hover requests against the configured metadata.
package tooling

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/metadata"
	"github.com/odatakit/odatakit/internal/query/ast"
	"github.com/odatakit/odatakit/internal/query/parser"
)

// API provides thread-safe access to query documents for IDE integration
type API struct {
	documents map[string]*Document
	docsMutex sync.RWMutex

	metadata *metadata.Service
	logger   *zap.Logger

	// unavailable holds resolved metadata paths that failed to load
	unavailable   map[string]bool
	unavailableMu sync.RWMutex
}

// Document is an open query document with its last parse result
type Document struct {
	// URI is the document identifier
	URI string

	// Content is the raw query text
	Content string

	// Version tracks document changes
	Version int

	// Tree is the parsed syntax tree; it is never nil
	Tree *ast.SyntaxTree

	// ParseErrors contains the syntax errors found, in document order
	ParseErrors []*errors.Error
}

// ServiceRoot returns the service root of the document
func (d *Document) ServiceRoot() string {
	if d.Tree == nil || d.Tree.Root == nil {
		return ""
	}
	return d.Tree.Root.ServiceRoot
}

// Position represents a position in a document (zero-based for LSP compatibility)
type Position struct {
	Line      int // Zero-based line number
	Character int // Zero-based character offset
}

// Range represents a range in a document
type Range struct {
	Start Position
	End   Position
}

// Location represents a source location with URI and range
type Location struct {
	URI   string
	Range Range
}

// Hover represents hover information
type Hover struct {
	// Contents is the hover text (markdown formatted)
	Contents string

	// Range is the range of the hovered word
	Range Range
}

// CompletionItem represents a completion suggestion
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string

	// InsertText is the text to insert (if different from label)
	InsertText string
}

// CompletionKind categorizes completion items
type CompletionKind int

const (
	// CompletionKindKeyword is a system query option
	CompletionKindKeyword CompletionKind = iota
	// CompletionKindEnumMember is a value from a closed set
	CompletionKindEnumMember
	// CompletionKindFunction is a canonical function
	CompletionKindFunction
	// CompletionKindClass is an entity set
	CompletionKindClass
	// CompletionKindProperty is an entity type property
	CompletionKindProperty
)

// Diagnostic represents a problem found in a document
type Diagnostic struct {
	Range    Range
	Severity DiagnosticSeverity
	Code     string
	Message  string
	Source   string
}

// DiagnosticSeverity indicates the severity of a diagnostic
type DiagnosticSeverity int

const (
	// DiagnosticSeverityError represents an error diagnostic
	DiagnosticSeverityError DiagnosticSeverity = iota
	// DiagnosticSeverityWarning represents a warning diagnostic
	DiagnosticSeverityWarning
	// DiagnosticSeverityInfo represents an informational diagnostic
	DiagnosticSeverityInfo
	// DiagnosticSeverityHint represents a hint diagnostic
	DiagnosticSeverityHint
)

const diagnosticSource = "odata"

// NewAPI creates a tooling API. A nil service disables every metadata feature.
func NewAPI(svc *metadata.Service, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		documents:   make(map[string]*Document),
		metadata:    svc,
		logger:      logger.Named("tooling"),
		unavailable: make(map[string]bool),
	}
}

// Metadata returns the metadata service, which may be nil
func (a *API) Metadata() *metadata.Service {
	return a.metadata
}

// OpenDocument parses and stores a document
func (a *API) OpenDocument(uri, content string) *Document {
	doc := parseDocument(uri, content)

	a.docsMutex.Lock()
	a.documents[uri] = doc
	a.docsMutex.Unlock()

	return doc
}

// UpdateDocument replaces the content of a document. Unchanged content only
// bumps the version.
func (a *API) UpdateDocument(uri, content string, version int) *Document {
	a.docsMutex.RLock()
	old, exists := a.documents[uri]
	a.docsMutex.RUnlock()

	if exists && old.Content == content {
		a.docsMutex.Lock()
		old.Version = version
		a.docsMutex.Unlock()
		return old
	}

	doc := parseDocument(uri, content)
	doc.Version = version

	a.docsMutex.Lock()
	a.documents[uri] = doc
	a.docsMutex.Unlock()

	return doc
}

// GetDocument retrieves an open document
func (a *API) GetDocument(uri string) (*Document, bool) {
	a.docsMutex.RLock()
	defer a.docsMutex.RUnlock()

	doc, exists := a.documents[uri]
	return doc, exists
}

// CloseDocument forgets a document
func (a *API) CloseDocument(uri string) {
	a.docsMutex.Lock()
	delete(a.documents, uri)
	a.docsMutex.Unlock()
}

// DocumentCount returns the number of open documents
func (a *API) DocumentCount() int {
	a.docsMutex.RLock()
	defer a.docsMutex.RUnlock()
	return len(a.documents)
}

func parseDocument(uri, content string) *Document {
	tree, errs := parser.New(content).Parse()
	return &Document{
		URI:         uri,
		Content:     content,
		Version:     1,
		Tree:        tree,
		ParseErrors: errs,
	}
}

// GetDiagnostics returns the syntax errors of a document
func (a *API) GetDiagnostics(uri string) []Diagnostic {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil
	}

	diagnostics := make([]Diagnostic, 0, len(doc.ParseErrors))
	for _, err := range doc.ParseErrors {
		diagnostics = append(diagnostics, Diagnostic{
			Range:    rangeOf(err.Location),
			Severity: DiagnosticSeverityError,
			Code:     err.Code,
			Message:  err.Message,
			Source:   diagnosticSource,
		})
	}
	return diagnostics
}

// rangeOf converts a 1-based error location into a 0-based range
func rangeOf(loc errors.SourceLocation) Range {
	line := max(loc.Line-1, 0)
	col := max(loc.Column-1, 0)
	length := max(loc.Length, 1)
	return Range{
		Start: Position{Line: line, Character: col},
		End:   Position{Line: line, Character: col + length},
	}
}

// lineAt returns the text of a 0-based line, or false when out of range
func (d *Document) lineAt(line int) (string, bool) {
	if line < 0 {
		return "", false
	}
	lines := strings.Split(d.Content, "\n")
	if line >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[line], "\r"), true
}

// entry resolves the metadata of a document. A failed load is logged once
// and turns metadata off for every service root that resolves to the same
// file until the API is discarded.
func (a *API) entry(doc *Document) (*metadata.Entry, bool) {
	root := doc.ServiceRoot()
	path, ok := a.metadataPath(root)
	if !ok || a.pathUnavailable(path) {
		return nil, false
	}

	entry, err := a.metadata.Entry(root)
	if err != nil {
		a.unavailableMu.Lock()
		first := !a.unavailable[path]
		a.unavailable[path] = true
		a.unavailableMu.Unlock()

		if first {
			a.logger.Warn("Metadata unavailable, disabling metadata features for this file",
				zap.String("uri", doc.URI),
				zap.String("service_root", root),
				zap.String("path", path),
				zap.Error(err))
		}
		return nil, false
	}
	return entry, entry != nil
}

// metadataPath resolves the metadata file configured for serviceRoot
func (a *API) metadataPath(serviceRoot string) (string, bool) {
	if a.metadata == nil {
		return "", false
	}
	mapEntry, ok := a.metadata.GetMapEntry(serviceRoot)
	if !ok {
		return "", false
	}
	return a.metadata.ResolvePath(mapEntry), true
}

func (a *API) pathUnavailable(path string) bool {
	a.unavailableMu.RLock()
	defer a.unavailableMu.RUnlock()
	return a.unavailable[path]
}

// MetadataUnavailable reports whether loading the metadata file configured
// for serviceRoot failed earlier
func (a *API) MetadataUnavailable(serviceRoot string) bool {
	path, ok := a.metadataPath(serviceRoot)
	return ok && a.pathUnavailable(path)
}

func documentNotFound(uri string) error {
	return fmt.Errorf("document not found: %s", uri)
}
