// Package pipeline wires the four ingestion stages together. Each
// stage is parameterized by a two-letter state code; the behavior for
// that state comes from the pack it registered at init.
package pipeline

import (
	"context"
	"database/sql"
	"log/slog"

	"openelex-backend/internal/cache"
	"openelex-backend/internal/catalog"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/models"
)

// Context carries the process-wide collaborators every stage needs.
// It replaces globals: the result store, the artifact cache root, the
// election catalog client and the logger travel together explicitly.
type Context struct {
	DB      *sql.DB
	Queries *datastore.Queries
	Catalog *catalog.Client
	Root    string
	Log     *slog.Logger
}

func NewContext(db *sql.DB, cat *catalog.Client, root string) *Context {
	return &Context{
		DB:      db,
		Queries: datastore.New(db),
		Catalog: cat,
		Root:    root,
		Log:     slog.Default(),
	}
}

// CacheFor returns the artifact cache for one state.
func (c *Context) CacheFor(state string) *cache.Cache {
	return cache.New(c.Root, state)
}

// FilenamePair is what the fetch stage consumes: a canonical cache
// filename and the URL that fills it.
type FilenamePair struct {
	Filename string
	URL      string
}

// Datasource enumerates the source files of a state's elections.
// year 0 means every year.
type Datasource interface {
	Elections(ctx context.Context, year int) (map[string][]models.Election, error)
	Mappings(ctx context.Context, year int) ([]models.Mapping, error)
	TargetURLs(ctx context.Context, year int) ([]string, error)
	FilenameURLPairs(ctx context.Context, year int) ([]FilenamePair, error)
	MappingForFile(ctx context.Context, filename string) (models.Mapping, error)
	MappingsForURL(ctx context.Context, url string) ([]models.Mapping, error)
}

// UnprocessedDatasource is implemented by states whose raw artifacts
// (PDFs, Access databases) are converted to CSV out-of-band; it lets
// the fetch stage pull the original files for audit.
type UnprocessedDatasource interface {
	UnprocessedFilenameURLPairs(ctx context.Context, year int) ([]FilenamePair, error)
}

// Fetcher resolves one URL to bytes in the state's cache directory.
type Fetcher interface {
	Fetch(ctx context.Context, url, fname string, overwrite bool) error
}

// Loader parses one cached artifact and emits RawResult rows.
type Loader interface {
	Load(ctx context.Context, mapping models.Mapping) error
}

// LoaderEntry pairs a predicate over mappings with the loader that
// handles the matching artifacts. Dispatch walks entries in order; the
// first match wins. New may fail, typically on an unreadable
// jurisdiction fixture.
type LoaderEntry struct {
	Name  string
	Match func(mapping models.Mapping) bool
	New   func(pctx *Context) (Loader, error)
}
