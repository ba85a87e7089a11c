// Package ia is the Iowa pack. The Secretary of State publishes
// precinct-level spreadsheets, frequently inside zip archives and in a
// different workbook layout almost every cycle; url_paths.csv is the
// curated inventory tying each artifact to its election.
package ia

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
	return &Datasource{BaseDatasource: us.NewBaseDatasource(pctx, "ia")}
}

func (d *Datasource) Mappings(ctx context.Context, year int) ([]models.Mapping, error) {
	elections, err := d.ElectionList(ctx, year)
	if err != nil {
		return nil, err
	}
	byDate := map[string]models.Election{}
	for _, e := range elections {
		byDate[e.StartDate+"|"+e.RaceType+"|"+specialKey(e.Special)] = e
	}

	rows, err := d.URLPaths()
	if err != nil {
		return nil, err
	}
	var mappings []models.Mapping
	for _, row := range rows {
		e, ok := byDate[row.Date+"|"+row.RaceType+"|"+specialKey(row.IsSpecial())]
		if !ok {
			// url_paths can run ahead of the catalog; rows without a
			// catalog election are invisible until it catches up
			continue
		}
		m, err := d.mappingFor(row, e)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func (d *Datasource) mappingFor(row us.URLPath, e models.Election) (models.Mapping, error) {
	ext := artifactExt(row)
	if ext == "" {
		return models.Mapping{}, fmt.Errorf("cannot derive extension for %s / %s", row.Date, row.Jurisdiction)
	}

	ocdID := "ocd-division/country:us/state:ia"
	name := "Iowa"
	if row.Jurisdiction != "" {
		counties, err := d.Jurisdictions()
		if err != nil {
			return models.Mapping{}, err
		}
		for _, county := range counties {
			if strings.EqualFold(county.Name, row.Jurisdiction) {
				ocdID = county.OCDID
				name = county.Name
				break
			}
		}
	}

	return models.Mapping{
		GeneratedFilename: filenames.Standardized("ia", e.StartDate, ext, filenames.Options{
			RaceType:       e.RaceType,
			Special:        e.Special,
			Party:          row.Party,
			Jurisdiction:   row.Jurisdiction,
			Office:         row.Office,
			OfficeDistrict: row.District,
			ReportingLevel: row.ReportingLevel,
		}),
		RawURL:               row.URL,
		PreProcessedURL:      row.PreProcessedURL,
		RawExtractedFilename: row.RawExtractedFilename,
		ParentZipfile:        row.ParentZipfile,
		OCDID:                ocdID,
		Name:                 name,
		Election:             e,
		SkipLoading:          row.SkipLoad(),
	}, nil
}

// artifactExt derives the cached file's extension: the extracted
// member's for archives, the URL's otherwise; preprocessed mirrors are
// always CSV.
func artifactExt(row us.URLPath) string {
	if row.PreProcessedURL != "" {
		return ".csv"
	}
	if row.RawExtractedFilename != "" {
		return strings.ToLower(path.Ext(row.RawExtractedFilename))
	}
	return strings.ToLower(path.Ext(row.URL))
}

func specialKey(special bool) string {
	if special {
		return "special"
	}
	return ""
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
