// Package load parses cached source artifacts and emits RawResult rows
// into the result store, one per (contest, candidate, reporting
// jurisdiction, votes type) tuple, preserving the source's vocabulary.
package load

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"openelex-backend/internal/cache"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

var tracer = otel.Tracer("openelex.load")

// ParseError reports a row that cannot be coerced. It aborts its
// source file; the batch proceeds with the next mapping.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Source, e.Line, e.Msg)
}

// Base carries what every loader needs for one source file.
type Base struct {
	PCtx       *pipeline.Context
	Datasource pipeline.Datasource
	Cache      *cache.Cache

	Mapping    models.Mapping
	Source     string
	ElectionID string
	State      string
	Timestamp  time.Time

	Inserter *datastore.BulkInserter[models.RawResult]
}

func NewBase(pctx *pipeline.Context, ds pipeline.Datasource, m models.Mapping) *Base {
	state := stateOf(m)
	return &Base{
		PCtx:       pctx,
		Datasource: ds,
		Cache:      pctx.CacheFor(state),
		Mapping:    m,
		Source:     m.GeneratedFilename,
		ElectionID: m.Election.Slug,
		State:      state,
		Timestamp:  time.Now().UTC(),
		Inserter:   datastore.NewRawResultInserter(pctx.DB, datastore.DefaultBulkSize),
	}
}

func stateOf(m models.Mapping) string {
	slug := m.Election.Slug
	if i := strings.Index(slug, "-"); i > 0 {
		return slug[:i]
	}
	return slug
}

// CommonRow prefills the fields every RawResult from this source file
// shares.
func (b *Base) CommonRow() models.RawResult {
	ts := b.Timestamp.Format(time.RFC3339)
	e := b.Mapping.Election
	return models.RawResult{
		Created:      ts,
		Updated:      ts,
		Source:       b.Source,
		ElectionID:   b.ElectionID,
		State:        strings.ToUpper(b.State),
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		ElectionType: e.RaceType,
		PrimaryType:  e.PrimaryType,
		ResultType:   e.ResultType,
		Special:      e.Special,
	}
}

// DeletePreviouslyLoaded removes every RawResult from a prior load of
// this source file, which is what makes reloads idempotent. It runs
// before any new insertion.
func (b *Base) DeletePreviouslyLoaded(ctx context.Context) error {
	n, err := b.PCtx.Queries.DeleteRawResultsBySource(ctx, b.Source)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.InfoContext(ctx, "cleared previous load", "source", b.Source, "rows", n)
	}
	return nil
}

// Finish flushes the insert buffer and logs the per-file summary.
func (b *Base) Finish(ctx context.Context) error {
	if err := b.Inserter.Flush(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "loaded", "source", b.Source, "rows", b.Inserter.Count())
	return nil
}

// Votes coerces a vote cell: empty means zero, numeric text (floats
// included, sources are sloppy) truncates to an integer, anything else
// is zero.
func Votes(cell string) sql.NullInt64 {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" {
		return sql.NullInt64{Int64: 0, Valid: true}
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return sql.NullInt64{Int64: 0, Valid: true}
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}
}

// VotesOrNull is the one-state variant that records non-numeric cells
// as NULL instead of zero.
func VotesOrNull(cell string) sql.NullInt64 {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" {
		return sql.NullInt64{Int64: 0, Valid: true}
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}
}

// Cell strips leading and trailing whitespace; every string cell goes
// through here.
func Cell(s string) string {
	return strings.TrimSpace(s)
}

// Run executes the load stage over every mapping matching the filter.
// A non-empty filename restricts the run to that one generated source.
func Run(ctx context.Context, pctx *pipeline.Context, state, datefilter, filename string) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if err := pipeline.ValidateDatefilter(datefilter); err != nil {
		return err
	}
	pack, err := pipeline.PackFor(state)
	if err != nil {
		return err
	}
	ds := pack.NewDatasource(pctx)

	if filename != "" {
		m, err := ds.MappingForFile(ctx, filename)
		if err != nil {
			return err
		}
		return RunOne(ctx, pctx, pack, m)
	}

	mappings, err := ds.Mappings(ctx, 0)
	if err != nil {
		return err
	}

	var loaded, skipped int
	for _, m := range mappings {
		if !pipeline.MatchesDatefilter(m.GeneratedFilename, datefilter) {
			continue
		}
		if m.SkipLoading {
			slog.DebugContext(ctx, "fetch-only source, not loading", "source", m.GeneratedFilename)
			continue
		}
		err := RunOne(ctx, pctx, pack, m)
		var parseErr *ParseError
		switch {
		case err == nil:
			loaded++
		case errors.As(err, &parseErr):
			slog.WarnContext(ctx, "source aborted", "source", m.GeneratedFilename, "err", err)
			skipped++
		default:
			return err
		}
	}
	slog.InfoContext(ctx, "load finished", "state", state, "loaded", loaded, "skipped", skipped)
	return nil
}

// RunOne dispatches a single mapping through the pack's ordered loader
// table. An unmatched mapping is a warning skip, never an error, so
// bulk runs proceed.
func RunOne(ctx context.Context, pctx *pipeline.Context, pack pipeline.Pack, m models.Mapping) error {
	for _, entry := range pack.Loaders {
		if !entry.Match(m) {
			continue
		}
		slog.DebugContext(ctx, "dispatching", "source", m.GeneratedFilename, "loader", entry.Name)
		l, err := entry.New(pctx)
		if err != nil {
			return fmt.Errorf("loader %s: %w", entry.Name, err)
		}
		return l.Load(ctx, m)
	}
	slog.WarnContext(ctx, "no loader recognizes source, skipping", "source", m.GeneratedFilename)
	return nil
}
