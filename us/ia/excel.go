package ia

import (
	"context"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// openXLSRows flattens the first sheet of a legacy .xls workbook.
func openXLSRows(path string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		var cells []string
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, load.Cell(row.Col(j)))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// openXLSXRows flattens the first sheet of an .xlsx workbook.
func openXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func sourceYear(source string) string {
	if len(source) < 4 {
		return ""
	}
	return source[:4]
}

// PrecinctXLS parses the per-county precinct workbooks used through
// the 2008 cycle: office title rows introduce a candidate-column
// header, then one row per precinct. "ABSENTEE" and "TOTALS" rows are
// county-level breakdowns, not precincts.
type PrecinctXLS struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewPrecinctXLS(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &PrecinctXLS{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsPrecinctXLS(m models.Mapping) bool {
	return strings.HasSuffix(m.GeneratedFilename, ".xls") &&
		m.Name != "Iowa" &&
		sourceYear(m.GeneratedFilename) < "2010"
}

func (l *PrecinctXLS) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}
	rows, err := openXLSRows(base.Cache.Abs(base.Source))
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}
	if err := l.parse(ctx, base, rows); err != nil {
		return err
	}
	return base.Finish(ctx)
}

func (l *PrecinctXLS) parse(ctx context.Context, base *load.Base, rows [][]string) error {
	county := base.Mapping.Name
	var office string
	var candidates []string

	for i, cells := range rows {
		switch {
		case isTitleRow(cells):
			office = cells[0]
			candidates = nil
		case len(cells) > 1 && strings.EqualFold(cells[0], "precinct"):
			candidates = cells[1:]
		case len(cells) > 1 && cells[0] != "" && candidates != nil:
			if !load.TargetOffice(office) {
				continue
			}
			if err := l.emit(ctx, base, county, office, candidates, cells, i+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *PrecinctXLS) emit(ctx context.Context, base *load.Base, county, office string, candidates, cells []string, line int) error {
	jurisdiction := cells[0]
	breakdownType, isBreakdown := load.BreakdownRow(jurisdiction)

	for c, candidate := range candidates {
		if candidate == "" || c+1 >= len(cells) {
			continue
		}
		row := base.CommonRow()
		row.Office = office
		row.FullName = candidate
		row.Votes = load.Votes(cells[c+1])

		if vt, ok := load.PseudoVotesType(candidate); ok {
			row.VotesType = vt
			row.WriteIn = vt == models.VotesWriteIn
		}

		if isBreakdown {
			row.ReportingLevel = models.LevelCounty
			row.Jurisdiction = county
			if breakdownType != models.VotesTotal {
				row.VotesType = breakdownType
			}
			j, err := l.ix.ByName(county)
			if err != nil {
				return &load.ParseError{Source: base.Source, Line: line, Msg: err.Error()}
			}
			row.OCDID = j.OCDID
		} else {
			row.ReportingLevel = models.LevelPrecinct
			row.Jurisdiction = jurisdiction
			row.ParentJurisdiction = county
			ocd, err := l.ix.PrecinctOCDID(county, jurisdiction)
			if err != nil {
				return &load.ParseError{Source: base.Source, Line: line, Msg: err.Error()}
			}
			row.OCDID = ocd
		}

		if err := base.Inserter.Append(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// isTitleRow recognizes the office rows separating blocks: one leading
// cell of text, everything else blank.
func isTitleRow(cells []string) bool {
	if len(cells) == 0 || cells[0] == "" {
		return false
	}
	if strings.EqualFold(cells[0], "precinct") {
		return false
	}
	for _, c := range cells[1:] {
		if c != "" {
			return false
		}
	}
	return true
}

// CountyXLS parses the statewide county-level workbooks of the 2010
// cycle, one row per (race, county, candidate).
type CountyXLS struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewCountyXLS(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &CountyXLS{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsCountyXLS(m models.Mapping) bool {
	return strings.HasSuffix(m.GeneratedFilename, ".xls") &&
		m.Name == "Iowa" &&
		sourceYear(m.GeneratedFilename) >= "2010"
}

func (l *CountyXLS) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}
	rows, err := openXLSRows(base.Cache.Abs(base.Source))
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}
	if err := l.parse(ctx, base, rows); err != nil {
		return err
	}
	return base.Finish(ctx)
}

func (l *CountyXLS) parse(ctx context.Context, base *load.Base, rows [][]string) error {
	cols, start := findHeader(rows, "county")
	if cols == nil {
		return &load.ParseError{Source: base.Source, Line: 1, Msg: "no header row with a county column"}
	}
	get := cellGetter(cols)

	for i := start; i < len(rows); i++ {
		cells := rows[i]
		if len(cells) == 0 || get(cells, "county") == "" {
			continue
		}
		office, district := splitRace(get(cells, "race"))
		if !load.TargetOffice(office) {
			continue
		}

		row := base.CommonRow()
		row.Office = office
		row.District = district
		row.FullName = get(cells, "candidate")
		row.Party = get(cells, "party")
		row.Votes = load.Votes(get(cells, "votes"))
		if vt, ok := load.PseudoVotesType(row.FullName); ok {
			row.VotesType = vt
			row.WriteIn = vt == models.VotesWriteIn
		}
		if base.Mapping.Election.PrimaryType == "closed" && row.Party != "" {
			row.PrimaryParty = row.Party
		}

		county := get(cells, "county")
		row.ReportingLevel = models.LevelCounty
		row.Jurisdiction = county
		j, err := l.ix.ByName(county)
		if err != nil {
			return &load.ParseError{Source: base.Source, Line: i + 1, Msg: err.Error()}
		}
		row.OCDID = j.OCDID

		if err := base.Inserter.Append(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// PrecinctXLSX parses the statewide precinct workbooks used from 2012
// on, which break each total into absentee and polling columns.
type PrecinctXLSX struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewPrecinctXLSX(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &PrecinctXLSX{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsPrecinctXLSX(m models.Mapping) bool {
	return strings.HasSuffix(m.GeneratedFilename, ".xlsx")
}

func (l *PrecinctXLSX) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}
	rows, err := openXLSXRows(base.Cache.Abs(base.Source))
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}
	if err := l.parse(ctx, base, rows); err != nil {
		return err
	}
	return base.Finish(ctx)
}

func (l *PrecinctXLSX) parse(ctx context.Context, base *load.Base, rows [][]string) error {
	cols, start := findHeader(rows, "precinct")
	if cols == nil {
		return &load.ParseError{Source: base.Source, Line: 1, Msg: "no header row with a precinct column"}
	}
	get := cellGetter(cols)

	for i := start; i < len(rows); i++ {
		cells := rows[i]
		if len(cells) == 0 || get(cells, "precinct") == "" {
			continue
		}
		office, district := splitRace(get(cells, "race"))
		if !load.TargetOffice(office) {
			continue
		}

		row := base.CommonRow()
		row.Office = office
		row.District = district
		row.FullName = get(cells, "candidate")
		row.Party = get(cells, "party")
		row.Votes = load.Votes(get(cells, "final"))
		if vt, ok := load.PseudoVotesType(row.FullName); ok {
			row.VotesType = vt
			row.WriteIn = vt == models.VotesWriteIn
		}

		breakdowns := map[string]int64{}
		if v := get(cells, "absentee"); v != "" {
			breakdowns["absentee"] = load.Votes(v).Int64
		}
		if v := get(cells, "polling"); v != "" {
			breakdowns["election_day"] = load.Votes(v).Int64
		}
		if len(breakdowns) > 0 {
			row.VoteBreakdowns = breakdowns
		}

		county := get(cells, "county")
		precinct := get(cells, "precinct")
		row.ReportingLevel = models.LevelPrecinct
		row.Jurisdiction = precinct
		row.ParentJurisdiction = county
		ocd, err := l.ix.PrecinctOCDID(county, precinct)
		if err != nil {
			return &load.ParseError{Source: base.Source, Line: i + 1, Msg: err.Error()}
		}
		row.OCDID = ocd

		if err := base.Inserter.Append(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// findHeader locates the first row containing the marker column and
// returns its column index plus the first data row.
func findHeader(rows [][]string, marker string) (map[string]int, int) {
	for i, cells := range rows {
		cols := map[string]int{}
		found := false
		for j, name := range cells {
			key := strings.ToLower(load.Cell(name))
			if key == "" {
				continue
			}
			cols[key] = j
			if key == marker {
				found = true
			}
		}
		if found {
			return cols, i + 1
		}
	}
	return nil, 0
}

func cellGetter(cols map[string]int) func(cells []string, col string) string {
	return func(cells []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return load.Cell(cells[i])
	}
}

// splitRace separates a combined race string such as
// "State Senator District 26" into office and district.
func splitRace(race string) (office, district string) {
	lower := strings.ToLower(race)
	i := strings.LastIndex(lower, "district")
	if i < 0 {
		return load.Cell(race), ""
	}
	office = load.Cell(race[:i])
	district = strings.TrimLeft(load.Cell(race[i+len("district"):]), "0")
	return office, district
}
