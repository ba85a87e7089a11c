// Package us holds what every state pack shares: loading the
// hand-maintained mapping fixtures (jurisdictions and url_paths) and
// the datasource plumbing that derives URLs and filename pairs from a
// pack's mappings.
package us

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"

	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// URLPath is one row of a state's url_paths.csv, the curated inventory
// of source URLs per election. Not every state fills every column.
type URLPath struct {
	Date                 string `csv:"date"`
	Office               string `csv:"office"`
	District             string `csv:"district"`
	RaceType             string `csv:"race_type"`
	Party                string `csv:"party"`
	Special              string `csv:"special"`
	ReportingLevel       string `csv:"reporting_level"`
	Jurisdiction         string `csv:"jurisdiction"`
	URL                  string `csv:"url"`
	PreProcessedURL      string `csv:"pre_processed_url"`
	RawExtractedFilename string `csv:"raw_extracted_filename"`
	ParentZipfile        string `csv:"parent_zipfile"`
	SkipLoading          string `csv:"skip_loading"`
	Winners              string `csv:"winners"`
}

// IsSpecial coerces the fixture's loosely-typed special column.
func (u URLPath) IsSpecial() bool { return truthy(u.Special) }

// SkipLoad reports whether the row is fetch-only: the artifact is kept
// for audit but no loader should parse it.
func (u URLPath) SkipLoad() bool { return truthy(u.SkipLoading) }

// HasWinners reports whether the source marks winning candidates.
func (u URLPath) HasWinners() bool { return truthy(u.Winners) }

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}

// BaseDatasource loads and memoizes the per-state fixtures every
// datasource needs. State datasources embed it.
type BaseDatasource struct {
	PCtx  *pipeline.Context
	State string

	mu            sync.Mutex
	jurisdictions []models.Jurisdiction
	urlPaths      []URLPath
}

func NewBaseDatasource(pctx *pipeline.Context, state string) *BaseDatasource {
	return &BaseDatasource{PCtx: pctx, State: strings.ToLower(state)}
}

// MappingsDir is <root>/us/<state>/mappings, where the state's
// hand-maintained fixtures live.
func (d *BaseDatasource) MappingsDir() string {
	return filepath.Join(d.PCtx.Root, "us", d.State, "mappings")
}

// Jurisdictions loads mappings/<state>.csv once per datasource.
func (d *BaseDatasource) Jurisdictions() ([]models.Jurisdiction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.jurisdictions != nil {
		return d.jurisdictions, nil
	}
	path := filepath.Join(d.MappingsDir(), d.State+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction fixture: %w", err)
	}
	defer f.Close()
	var rows []models.Jurisdiction
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("jurisdiction fixture %s: %w", path, err)
	}
	d.jurisdictions = rows
	return rows, nil
}

// Counties filters the jurisdiction fixture down to county-level rows.
// Independent cities (OCD "place:", Baltimore City) publish results the
// same way counties do, so they count.
func (d *BaseDatasource) Counties() ([]models.Jurisdiction, error) {
	rows, err := d.Jurisdictions()
	if err != nil {
		return nil, err
	}
	var counties []models.Jurisdiction
	for _, j := range rows {
		if strings.Contains(j.OCDID, "county:") ||
			strings.Contains(j.OCDID, "parish:") ||
			strings.Contains(j.OCDID, "place:") {
			counties = append(counties, j)
		}
	}
	return counties, nil
}

// URLPaths loads mappings/url_paths.csv once per datasource.
func (d *BaseDatasource) URLPaths() ([]URLPath, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.urlPaths != nil {
		return d.urlPaths, nil
	}
	path := filepath.Join(d.MappingsDir(), "url_paths.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("url_paths fixture: %w", err)
	}
	defer f.Close()
	var rows []URLPath
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("url_paths fixture %s: %w", path, err)
	}
	d.urlPaths = rows
	return rows, nil
}

// URLPathsForDate filters the url_paths fixture to one election date
// (YYYY-MM-DD).
func (d *BaseDatasource) URLPathsForDate(date string) ([]URLPath, error) {
	rows, err := d.URLPaths()
	if err != nil {
		return nil, err
	}
	var out []URLPath
	for _, u := range rows {
		if u.Date == date {
			out = append(out, u)
		}
	}
	return out, nil
}

// Elections serves the datasource interface from the shared catalog
// client, filtered to one year when year is non-zero.
func (d *BaseDatasource) Elections(ctx context.Context, year int) (map[string][]models.Election, error) {
	byYear, err := d.PCtx.Catalog.ByYear(ctx, d.State)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		return byYear, nil
	}
	want := fmt.Sprintf("%04d", year)
	if elections, ok := byYear[want]; ok {
		return map[string][]models.Election{want: elections}, nil
	}
	return map[string][]models.Election{}, nil
}

// ElectionList flattens the catalog's records for the year filter,
// keeping the catalog's order.
func (d *BaseDatasource) ElectionList(ctx context.Context, year int) ([]models.Election, error) {
	elections, err := d.PCtx.Catalog.Elections(ctx, d.State)
	if err != nil {
		return nil, err
	}
	var out []models.Election
	for _, e := range elections {
		if pipeline.MatchesYear(e.StartDate, year) {
			out = append(out, e)
		}
	}
	return out, nil
}

// TargetURLs derives the unique fetchable URLs from a datasource's
// mappings, preserving mapping order.
func TargetURLs(ctx context.Context, ds pipeline.Datasource, year int) ([]string, error) {
	mappings, err := ds.Mappings(ctx, year)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var urls []string
	for _, m := range mappings {
		u := m.URLToFetch()
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls, nil
}

// FilenameURLPairs derives the fetch stage's work list: one pair per
// mapping with a fetchable URL. Archive members repeat their archive
// URL; the zip fetcher dedupes per run.
func FilenameURLPairs(ctx context.Context, ds pipeline.Datasource, year int) ([]pipeline.FilenamePair, error) {
	mappings, err := ds.Mappings(ctx, year)
	if err != nil {
		return nil, err
	}
	var pairs []pipeline.FilenamePair
	for _, m := range mappings {
		u := m.URLToFetch()
		if u == "" {
			continue
		}
		pairs = append(pairs, pipeline.FilenamePair{Filename: m.GeneratedFilename, URL: u})
	}
	return pairs, nil
}

// MappingForFile resolves one mapping by its generated filename.
func MappingForFile(ctx context.Context, ds pipeline.Datasource, filename string) (models.Mapping, error) {
	mappings, err := ds.Mappings(ctx, 0)
	if err != nil {
		return models.Mapping{}, err
	}
	for _, m := range mappings {
		if m.GeneratedFilename == filename {
			return m, nil
		}
	}
	return models.Mapping{}, fmt.Errorf("no mapping generates %q", filename)
}

// MappingsForURL lists every mapping claiming a URL, raw or
// preprocessed.
func MappingsForURL(ctx context.Context, ds pipeline.Datasource, url string) ([]models.Mapping, error) {
	mappings, err := ds.Mappings(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []models.Mapping
	for _, m := range mappings {
		if m.RawURL == url || m.PreProcessedURL == url {
			out = append(out, m)
		}
	}
	return out, nil
}
