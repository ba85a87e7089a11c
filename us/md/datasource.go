// Package md is the Maryland pack. The State Board of Elections
// publishes per-county and per-precinct CSVs at predictable URLs from
// 2000 on, plus statewide files by state legislative district; older
// elections are covered by cleaned mirrors listed in url_paths.csv.
package md

import (
	"context"
	"fmt"
	"strings"

	"openelex-backend/lib/filenames"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
	"openelex-backend/us"
)

const resultsBase = "http://www.elections.state.md.us/elections"

type Datasource struct {
	*us.BaseDatasource
}

func NewDatasource(pctx *pipeline.Context) pipeline.Datasource {
	return &Datasource{BaseDatasource: us.NewBaseDatasource(pctx, "md")}
}

func (d *Datasource) Mappings(ctx context.Context, year int) ([]models.Mapping, error) {
	elections, err := d.ElectionList(ctx, year)
	if err != nil {
		return nil, err
	}
	var mappings []models.Mapping
	for _, e := range elections {
		ms, err := d.electionMappings(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("election %s: %w", e.Slug, err)
		}
		mappings = append(mappings, ms...)
	}
	return mappings, nil
}

func (d *Datasource) electionMappings(ctx context.Context, e models.Election) ([]models.Mapping, error) {
	// elections with curated url_paths rows come from the cleaned
	// mirrors; everything else is synthesized from the board's URL
	// scheme
	if rows, err := d.URLPathsForDate(e.StartDate); err != nil {
		return nil, err
	} else if len(rows) > 0 {
		return d.preprocessedMappings(e)
	}

	var mappings []models.Mapping

	// statewide files broken out by state legislative district
	for _, link := range e.DirectLinks {
		mappings = append(mappings, models.Mapping{
			GeneratedFilename: filenames.Standardized("md", e.StartDate, ".csv", filenames.Options{
				RaceType:       e.RaceType,
				Special:        e.Special,
				ReportingLevel: "state_legislative",
			}),
			RawURL:   link,
			OCDID:    "ocd-division/country:us/state:md",
			Name:     "Maryland",
			Election: e,
		})
	}

	counties, err := d.Counties()
	if err != nil {
		return nil, err
	}
	for _, county := range counties {
		for _, level := range []string{"county", "precinct"} {
			// precinct files start with the 2002 cycle
			if level == "precinct" && e.Year() < "2002" {
				continue
			}
			mappings = append(mappings, models.Mapping{
				GeneratedFilename: filenames.Standardized("md", e.StartDate, ".csv", filenames.Options{
					RaceType:       e.RaceType,
					Special:        e.Special,
					Jurisdiction:   county.Name,
					ReportingLevel: level,
				}),
				RawURL:   countyResultsURL(county, e, level),
				OCDID:    county.OCDID,
				Name:     county.Name,
				Election: e,
			})
		}
	}
	return mappings, nil
}

// preprocessedMappings covers elections served from the cleaned
// mirrors in url_paths.csv.
func (d *Datasource) preprocessedMappings(e models.Election) ([]models.Mapping, error) {
	rows, err := d.URLPathsForDate(e.StartDate)
	if err != nil {
		return nil, err
	}
	var mappings []models.Mapping
	for _, row := range rows {
		if row.RaceType != e.RaceType || row.IsSpecial() != e.Special {
			continue
		}
		mappings = append(mappings, models.Mapping{
			GeneratedFilename: filenames.Standardized("md", e.StartDate, ".csv", filenames.Options{
				RaceType:       e.RaceType,
				Special:        e.Special,
				Party:          row.Party,
				Jurisdiction:   row.Jurisdiction,
				Office:         row.Office,
				OfficeDistrict: row.District,
				ReportingLevel: row.ReportingLevel,
			}),
			RawURL:          row.URL,
			PreProcessedURL: row.PreProcessedURL,
			OCDID:           "ocd-division/country:us/state:md",
			Name:            "Maryland",
			Election:        e,
		})
	}
	return mappings, nil
}

// countyResultsURL composes the board's publication URL for one
// county's file. The path vocabulary shifted with the 2004 cycle.
func countyResultsURL(county models.Jurisdiction, e models.Election, level string) string {
	name := county.URLName
	if name == "" {
		name = strings.ReplaceAll(strings.ToLower(county.Name), " ", "_")
	}
	return fmt.Sprintf("%s/%s/election_data/%s_by_%s_%s.csv",
		resultsBase, e.Year(), name, level, strings.ReplaceAll(e.RaceType, "-", "_"))
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
