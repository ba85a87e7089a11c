package md

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// ResultsCSV parses the board's own publications, in all three
// layouts: per-county, per-precinct, and statewide by state
// legislative district. Files from cycles before 2004 are Latin-1.
type ResultsCSV struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewResultsCSV(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &ResultsCSV{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsResultsCSV(m models.Mapping) bool {
	return m.PreProcessedURL == "" && strings.HasSuffix(m.GeneratedFilename, ".csv")
}

func (l *ResultsCSV) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}

	f, err := os.Open(base.Cache.Abs(base.Source))
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if m.Election.Year() < "2004" {
		r = charmap.ISO8859_1.NewDecoder().Reader(f)
	}

	if err := l.parse(ctx, base, r); err != nil {
		return err
	}
	return base.Finish(ctx)
}

func (l *ResultsCSV) parse(ctx context.Context, base *load.Base, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 1, Msg: fmt.Sprintf("missing header: %v", err)}
	}
	cols := headerIndex(header)

	level := reportingLevel(base.Source)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &load.ParseError{Source: base.Source, Line: line, Msg: err.Error()}
		}
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return load.Cell(record[i])
		}

		office := get("office name")
		if !load.TargetOffice(office) {
			continue
		}

		row := base.CommonRow()
		row.Office = office
		row.District = get("office district")
		row.Party = get("party")
		row.FullName = candidateName(get)
		row.GivenName = get("candidate first name")
		row.MiddleName = get("candidate middle name")
		row.FamilyName = get("candidate last name")
		row.WriteIn = strings.EqualFold(get("write-in?"), "y")

		if vt, ok := load.PseudoVotesType(row.FullName); ok {
			row.VotesType = vt
			row.WriteIn = row.WriteIn || vt == models.VotesWriteIn
		}
		if base.Mapping.Election.PrimaryType == "closed" && row.Party != "" {
			row.PrimaryParty = row.Party
		}

		switch level {
		case models.LevelPrecinct:
			precinct := fmt.Sprintf("%s-%s", get("election district"), get("election precinct"))
			row.ReportingLevel = models.LevelPrecinct
			row.Jurisdiction = precinct
			row.ParentJurisdiction = base.Mapping.Name
			ocd, err := l.ix.PrecinctOCDID(base.Mapping.Name, precinct)
			if err != nil {
				return &load.ParseError{Source: base.Source, Line: line, Msg: err.Error()}
			}
			row.OCDID = ocd
			row.Votes = load.Votes(get("election night votes"))
		case models.LevelStateLegislative:
			district := get("state legislative district")
			row.ReportingLevel = models.LevelStateLegislative
			row.Jurisdiction = district
			row.OCDID = l.ix.StateOCDID() + "/sldl:" + strings.TrimLeft(strings.ToLower(district), "0")
			row.Votes = load.Votes(get("total votes"))
		default:
			row.ReportingLevel = models.LevelCounty
			row.Jurisdiction = base.Mapping.Name
			row.OCDID = base.Mapping.OCDID
			row.Votes = load.Votes(get("total votes"))
			row.VoteBreakdowns = breakdowns(get)
		}

		if err := base.Inserter.Append(ctx, row); err != nil {
			return err
		}
	}
}

// candidateName prefers the combined column, reassembling from the
// split columns when a vintage lacks it.
func candidateName(get func(string) string) string {
	if name := get("candidate name"); name != "" {
		return name
	}
	bits := []string{}
	for _, col := range []string{"candidate first name", "candidate middle name", "candidate last name"} {
		if v := get(col); v != "" {
			bits = append(bits, v)
		}
	}
	return strings.Join(bits, " ")
}

// breakdowns collects the per-method columns county files carry.
func breakdowns(get func(string) string) map[string]int64 {
	out := map[string]int64{}
	for col, key := range map[string]string{
		"election night votes": "election_night",
		"absentees votes":      "absentee",
		"provisional votes":    "provisional",
		"2nd absentees votes":  "second_absentee",
	} {
		if v := get(col); v != "" {
			out[key] = load.Votes(v).Int64
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func reportingLevel(source string) models.ReportingLevel {
	switch {
	case strings.Contains(source, "__precinct"):
		return models.LevelPrecinct
	case strings.Contains(source, "__state_legislative"):
		return models.LevelStateLegislative
	}
	return models.LevelCounty
}

func headerIndex(header []string) map[string]int {
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(load.Cell(name))] = i
	}
	return cols
}
