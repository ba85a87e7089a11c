// Package wv is the West Virginia pack. Results arrive three ways:
// per-county HTML pages for the older cycles, per-county XML feeds
// once the state moved to an election-night reporting vendor, and a
// report-builder portal for some special elections. url_paths.csv is
// the curated inventory for the first two; portal elections are
// flagged in the catalog.
package wv

import (
	"context"
	"fmt"
	"path"
	"strings"

	"openelex-backend/lib/filenames"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
	"openelex-backend/us"
)

type Datasource struct {
	*us.BaseDatasource
}

func NewDatasource(pctx *pipeline.Context) pipeline.Datasource {
	return &Datasource{BaseDatasource: us.NewBaseDatasource(pctx, "wv")}
}

func (d *Datasource) Mappings(ctx context.Context, year int) ([]models.Mapping, error) {
	elections, err := d.ElectionList(ctx, year)
	if err != nil {
		return nil, err
	}
	var mappings []models.Mapping
	for _, e := range elections {
		ms, err := d.electionMappings(e)
		if err != nil {
			return nil, fmt.Errorf("election %s: %w", e.Slug, err)
		}
		mappings = append(mappings, ms...)
	}
	return mappings, nil
}

func (d *Datasource) electionMappings(e models.Election) ([]models.Mapping, error) {
	rows, err := d.URLPathsForDate(e.StartDate)
	if err != nil {
		return nil, err
	}

	var mappings []models.Mapping
	for _, row := range rows {
		if row.RaceType != e.RaceType || row.IsSpecial() != e.Special {
			continue
		}
		ocdID := "ocd-division/country:us/state:wv"
		name := "West Virginia"
		if row.Jurisdiction != "" {
			county, err := d.countyNamed(row.Jurisdiction)
			if err != nil {
				return nil, err
			}
			ocdID = county.OCDID
			name = county.Name
		}
		ext := strings.ToLower(path.Ext(row.URL))
		if row.PreProcessedURL != "" {
			ext = ".csv"
		}
		mappings = append(mappings, models.Mapping{
			GeneratedFilename: filenames.Standardized("wv", e.StartDate, ext, filenames.Options{
				RaceType:       e.RaceType,
				Special:        e.Special,
				Jurisdiction:   row.Jurisdiction,
				Office:         row.Office,
				OfficeDistrict: row.District,
				ReportingLevel: row.ReportingLevel,
			}),
			RawURL:          row.URL,
			PreProcessedURL: row.PreProcessedURL,
			OCDID:           ocdID,
			Name:            name,
			Election:        e,
			SkipLoading:     row.SkipLoad(),
		})
	}

	// portal elections have no enumerable URLs up front: the fetcher
	// scrapes the form and resolves report filenames back through
	// MappingsForURL
	if e.PortalLink != "" {
		mappings = append(mappings, models.Mapping{
			GeneratedFilename: filenames.Standardized("wv", e.StartDate, ".html", filenames.Options{
				RaceType:   e.RaceType,
				Special:    e.Special,
				SuffixBits: []string{"portal"},
			}),
			RawURL:   e.PortalLink,
			OCDID:    "ocd-division/country:us/state:wv",
			Name:     "West Virginia",
			Election: e,
		})
	}
	return mappings, nil
}

func (d *Datasource) countyNamed(name string) (models.Jurisdiction, error) {
	counties, err := d.Jurisdictions()
	if err != nil {
		return models.Jurisdiction{}, err
	}
	for _, county := range counties {
		if strings.EqualFold(county.Name, name) {
			return county, nil
		}
	}
	return models.Jurisdiction{}, fmt.Errorf("unknown county %q in url_paths", name)
}

func (d *Datasource) TargetURLs(ctx context.Context, year int) ([]string, error) {
	return us.TargetURLs(ctx, d, year)
}

func (d *Datasource) FilenameURLPairs(ctx context.Context, year int) ([]pipeline.FilenamePair, error) {
	return us.FilenameURLPairs(ctx, d, year)
}

func (d *Datasource) MappingForFile(ctx context.Context, filename string) (models.Mapping, error) {
	return us.MappingForFile(ctx, d, filename)
}

func (d *Datasource) MappingsForURL(ctx context.Context, url string) ([]models.Mapping, error) {
	return us.MappingsForURL(ctx, d, url)
}
