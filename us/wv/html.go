package wv

import (
	"context"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"openelex-backend/lib/htmlutil"
	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// ResultsHTML parses the older per-county result pages: one heading
// per race followed by a candidate/party/votes table.
type ResultsHTML struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewResultsHTML(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &ResultsHTML{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsResultsHTML(m models.Mapping) bool {
	return strings.HasSuffix(m.GeneratedFilename, ".html") &&
		!strings.Contains(m.GeneratedFilename, "__portal")
}

func (l *ResultsHTML) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}

	f, err := os.Open(base.Cache.Abs(base.Source))
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}

	county := base.Mapping.Name
	j, err := l.ix.ByName(county)
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}

	var parseErr error
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		heading := htmlutil.CleanText(table.PrevAllFiltered("h2, h3").First().Text())
		office, district := splitContest(heading)
		if !load.TargetOffice(office) {
			return true
		}
		rows := htmlutil.TableRows(table)
		cols := tableHeader(rows)
		if cols == nil {
			return true
		}
		for _, cells := range rows[1:] {
			if err := l.emit(ctx, base, j, office, district, cols, cells); err != nil {
				parseErr = err
				return false
			}
		}
		return true
	})
	if parseErr != nil {
		return parseErr
	}
	return base.Finish(ctx)
}

func (l *ResultsHTML) emit(ctx context.Context, base *load.Base, j models.Jurisdiction, office, district string, cols map[string]int, cells []string) error {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return load.Cell(cells[i])
	}
	name := get("candidate")
	if name == "" {
		return nil
	}

	row := base.CommonRow()
	row.Office = office
	row.District = district
	row.FullName = name
	row.Party = get("party")
	row.Votes = load.VotesOrNull(get("votes"))
	row.ReportingLevel = models.LevelCounty
	row.Jurisdiction = j.Name
	row.OCDID = j.OCDID

	if vt, ok := load.PseudoVotesType(name); ok {
		row.VotesType = vt
		row.WriteIn = vt == models.VotesWriteIn
	}
	if base.Mapping.Election.PrimaryType == "closed" && row.Party != "" {
		row.PrimaryParty = row.Party
	}
	return base.Inserter.Append(ctx, row)
}

func tableHeader(rows [][]string) map[string]int {
	if len(rows) == 0 {
		return nil
	}
	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(load.Cell(name))] = i
	}
	if _, ok := cols["candidate"]; !ok {
		return nil
	}
	return cols
}
