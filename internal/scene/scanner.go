package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/models"
)

// DefaultDocumentExtensions are the scene document types scanned by default.
var DefaultDocumentExtensions = []string{".max"}

// Cache stores reference sets of documents that have not changed since
// their last scan.
type Cache interface {
	Lookup(path string, size int64, modTime time.Time) (*models.ReferenceSet, bool)
	Store(path string, size int64, modTime time.Time, refs *models.ReferenceSet) error
}

// Scanner extracts asset references from binary scene documents.
type Scanner struct {
	fs         billy.Filesystem
	container  Container
	extractors []Extractor
	docExts    map[string]bool
	cache      Cache
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithContainer replaces the OLE container reader.
func WithContainer(c Container) Option {
	return func(s *Scanner) { s.container = c }
}

// WithExtractors replaces the default extraction passes.
func WithExtractors(ex ...Extractor) Option {
	return func(s *Scanner) { s.extractors = ex }
}

// WithDocumentExtensions sets the accepted document extensions.
func WithDocumentExtensions(exts []string) Option {
	return func(s *Scanner) {
		if len(exts) > 0 {
			s.docExts = extensionSet(exts)
		}
	}
}

// WithCache enables the scan cache.
func WithCache(c Cache) Option {
	return func(s *Scanner) { s.cache = c }
}

// NewScanner creates a scanner reading documents from fs.
func NewScanner(fs billy.Filesystem, opts ...Option) *Scanner {
	s := &Scanner{
		fs:         fs,
		container:  OLEContainer{},
		extractors: DefaultExtractors(),
		docExts:    extensionSet(DefaultDocumentExtensions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentExtensions returns the accepted document extensions, lowercased.
func (s *Scanner) DocumentExtensions() []string {
	out := make([]string, 0, len(s.docExts))
	for ext := range s.docExts {
		out = append(out, ext)
	}
	return out
}

// Scan returns the references found in the document at path. It never
// fails: problems are recorded on the returned set's Errors and whatever
// was extracted is kept.
func (s *Scanner) Scan(path string) *models.ReferenceSet {
	refs := models.NewReferenceSet(path)

	info, err := s.fs.Stat(path)
	if err != nil {
		refs.AddError(models.NewAssetError(models.Classify(err), "scan", path, err).Error())
		return refs
	}
	if info.IsDir() || !s.docExts[strings.ToLower(filepath.Ext(path))] {
		refs.AddError(models.NewAssetError(models.KindFormat, "scan", path,
			fmt.Errorf("unsupported document type %q", filepath.Ext(path))).Error())
		return refs
	}

	if s.cache != nil {
		if cached, ok := s.cache.Lookup(path, info.Size(), info.ModTime()); ok {
			cached.Document = path
			cached.AddDiagnostic("loaded from scan cache")
			return cached
		}
	}

	data, ok := s.readStreams(path, refs)
	if !ok {
		return refs
	}

	docDir := filepath.Dir(path)
	for _, ex := range s.extractors {
		accepted := 0
		for _, raw := range ex.Extract(data) {
			ref, cat, ok := acceptCandidate(raw)
			if !ok {
				continue
			}
			if refs.Add(cat, resolveReference(ref, docDir)) {
				accepted++
			}
		}
		refs.AddDiagnostic(fmt.Sprintf("%s pass: %d new references", ex.Name(), accepted))
	}
	refs.AddDiagnostic(fmt.Sprintf("found %d textures, %d proxies, %d other",
		refs.Textures.Len(), refs.Proxies.Len(), refs.Other.Len()))

	if s.cache != nil && len(refs.Errors) == 0 {
		if err := s.cache.Store(path, info.Size(), info.ModTime(), refs); err != nil {
			refs.AddDiagnostic(fmt.Sprintf("scan cache not updated: %v", err))
		}
	}
	return refs
}

// readStreams concatenates every readable stream. Unreadable streams are
// skipped with a diagnostic. A truncated container is recorded as an error
// but the streams it did yield are still searched.
func (s *Scanner) readStreams(path string, refs *models.ReferenceSet) ([]byte, bool) {
	f, err := s.fs.Open(path)
	if err != nil {
		refs.AddError(models.NewAssetError(models.Classify(err), "scan", path, err).Error())
		return nil, false
	}
	defer f.Close()

	streams, err := s.container.Streams(f)
	if err != nil {
		refs.AddError(models.NewAssetError(models.KindFormat, "scan", path, err).Error())
		if !errors.Is(err, ErrTruncated) {
			return nil, false
		}
	}

	var data []byte
	for _, st := range streams {
		if st.Err != nil {
			refs.AddDiagnostic(fmt.Sprintf("skipped stream %s: %v", st.Name, st.Err))
			continue
		}
		data = append(data, st.Data...)
	}
	refs.AddDiagnostic(fmt.Sprintf("read %d streams, %d bytes", len(streams), len(data)))
	return data, true
}

func extensionSet(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m[ext] = true
	}
	return m
}
