// Package metadata resolves OData service roots to configured metadata
// documents and serves structural lookups against them.
package metadata

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/edm/edmx"
	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/query/ast"
)

// MapEntry declares that service roots starting with URL are described by
// the metadata file at Path
type MapEntry struct {
	URL  string `mapstructure:"url" yaml:"url" json:"url"`
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// Matches reports whether the entry's URL is a case-insensitive prefix of serviceRoot
func (e MapEntry) Matches(serviceRoot string) bool {
	return strings.HasPrefix(strings.ToLower(serviceRoot), strings.ToLower(e.URL))
}

// Config configures a Service
type Config struct {
	// Map is searched in order; the first matching entry wins.
	Map []MapEntry

	// WorkspaceRoots returns the workspace folders; relative paths resolve
	// against the first one.
	WorkspaceRoots func() []string

	FS            FileSystem
	Logger        *zap.Logger
	MeterProvider metric.MeterProvider
	Clock         func() time.Time
}

// Service resolves service roots to parsed metadata
type Service struct {
	mapEntries []MapEntry
	fs         FileSystem
	cache      *Cache
	logger     *zap.Logger
	metrics    *cacheMetrics

	rootsMu sync.RWMutex
	roots   func() []string
}

// NewService creates a metadata service
func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fs := cfg.FS
	if fs == nil {
		fs = OSFileSystem{}
	}
	roots := cfg.WorkspaceRoots
	if roots == nil {
		roots = func() []string { return nil }
	}

	return &Service{
		mapEntries: append([]MapEntry(nil), cfg.Map...),
		fs:         fs,
		cache:      NewCache(cfg.Clock),
		logger:     logger.Named("metadata"),
		metrics:    newCacheMetrics(cfg.MeterProvider, logger),
		roots:      roots,
	}
}

// SetWorkspaceRoots replaces the workspace folders used for path resolution
func (s *Service) SetWorkspaceRoots(roots []string) {
	roots = append([]string(nil), roots...)

	s.rootsMu.Lock()
	defer s.rootsMu.Unlock()
	s.roots = func() []string { return roots }
}

// MapEntries returns the configured map in order
func (s *Service) MapEntries() []MapEntry {
	return append([]MapEntry(nil), s.mapEntries...)
}

// Cache returns the service's metadata cache
func (s *Service) Cache() *Cache {
	return s.cache
}

// HasMapEntry reports whether some map entry matches serviceRoot
func (s *Service) HasMapEntry(serviceRoot string) bool {
	_, ok := s.GetMapEntry(serviceRoot)
	return ok
}

// GetMapEntry returns the first map entry, in configured order, whose URL is
// a case-insensitive prefix of serviceRoot. A longer, more specific entry
// later in the list does not take precedence.
func (s *Service) GetMapEntry(serviceRoot string) (MapEntry, bool) {
	for _, entry := range s.mapEntries {
		if entry.Matches(serviceRoot) {
			return entry, true
		}
	}
	return MapEntry{}, false
}

// ResolvePath returns the file path of a map entry. Relative paths are joined
// to the first workspace root, or used as-is when there is none.
func (s *Service) ResolvePath(entry MapEntry) string {
	if filepath.IsAbs(entry.Path) {
		return entry.Path
	}

	s.rootsMu.RLock()
	roots := s.roots()
	s.rootsMu.RUnlock()

	if len(roots) == 0 || roots[0] == "" {
		return entry.Path
	}
	return filepath.Join(roots[0], entry.Path)
}

// Entry returns the cached entry for serviceRoot, loading it on first use.
// It returns nil and no error when no map entry matches.
func (s *Service) Entry(serviceRoot string) (*Entry, error) {
	mapEntry, ok := s.GetMapEntry(serviceRoot)
	if !ok {
		return nil, nil //nolint:nilnil // no metadata configured is not an error
	}

	path := s.ResolvePath(mapEntry)
	entry, cached, err := s.cache.GetOrLoad(path, func() (*Entry, error) {
		return s.load(path)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		s.metrics.hit(path)
	}
	return entry, nil
}

// GetMetadataDocument returns the parsed metadata for serviceRoot, or nil
// when no map entry matches. Read failures are returned as errors of kind
// errors.KindIO and parse failures as errors.KindXMLParse.
func (s *Service) GetMetadataDocument(serviceRoot string) (*edm.Metadata, error) {
	entry, err := s.Entry(serviceRoot)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Metadata, nil
}

// GetMetadataDocumentLines returns the raw lines of the metadata file for
// serviceRoot, or nil when no map entry matches
func (s *Service) GetMetadataDocumentLines(serviceRoot string) ([]string, error) {
	entry, err := s.Entry(serviceRoot)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Lines, nil
}

// GetForTree resolves the service root of a parsed query document
func (s *Service) GetForTree(tree *ast.SyntaxTree) (*edm.Metadata, error) {
	if tree == nil || tree.Root == nil {
		return nil, nil //nolint:nilnil // nothing to resolve
	}
	return s.GetMetadataDocument(tree.Root.ServiceRoot)
}

// Invalidate drops the cached metadata of a resolved path
func (s *Service) Invalidate(path string) {
	s.cache.Invalidate(path)
}

// load reads and parses one metadata file
func (s *Service) load(path string) (*Entry, error) {
	start := time.Now()
	s.metrics.miss(path)

	entry, err := ReadEntry(s.fs, path)
	took := time.Since(start)
	s.metrics.loaded(path, took, err)

	if err != nil {
		s.logger.Warn("Failed to load metadata", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Loaded metadata",
		zap.String("path", path),
		zap.Int("schemas", len(entry.Metadata.Schemas)),
		zap.Int("lines", len(entry.Lines)),
		zap.Duration("took", took))
	return entry, nil
}

// ReadEntry reads and parses the metadata file at path without caching it.
// Read failures are errors.KindIO and parse failures errors.KindXMLParse, both
// naming path.
func ReadEntry(fs FileSystem, path string) (*Entry, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(path, err)
	}

	text := string(data)
	md, idx, err := edmx.ParseWithIndex(text)
	if err != nil {
		if e, ok := errors.As(err); ok {
			return nil, e.WithPath(path)
		}
		return nil, err
	}

	return &Entry{
		Metadata: md,
		Index:    idx,
		Lines:    strings.Split(text, "\n"),
		Path:     path,
		Hash:     xxhash.Sum64(data),
	}, nil
}
