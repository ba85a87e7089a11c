package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// PreprocessedCSV loads the cleaned CSVs hosted on a companion
// repository. These share a header vocabulary across states: county,
// optional precinct, office, district, party, candidate, votes and an
// optional votes_type column.
type PreprocessedCSV struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *JurisdictionIndex
}

// NewPreprocessedCSV returns a loader constructor for the pack's
// dispatch table.
func NewPreprocessedCSV(ds pipeline.Datasource, ix *JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &PreprocessedCSV{pctx: pctx, ds: ds, ix: ix}
	}
}

// IsPreprocessedCSV is the dispatch predicate: the mapping carries a
// preprocessed mirror URL and a .csv generated filename.
func IsPreprocessedCSV(m models.Mapping) bool {
	return m.PreProcessedURL != "" && strings.HasSuffix(m.GeneratedFilename, ".csv")
}

func (l *PreprocessedCSV) Load(ctx context.Context, m models.Mapping) error {
	ctx, span := tracer.Start(ctx, "PreprocessedCSV.Load")
	defer span.End()

	base := NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}

	f, err := os.Open(base.Cache.Abs(base.Source))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := l.parse(ctx, base, f); err != nil {
		return err
	}
	return base.Finish(ctx)
}

func (l *PreprocessedCSV) parse(ctx context.Context, base *Base, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return &ParseError{Source: base.Source, Line: 1, Msg: fmt.Sprintf("missing header: %v", err)}
	}
	cols := indexHeader(header)
	if _, ok := cols["office"]; !ok {
		return &ParseError{Source: base.Source, Line: 1, Msg: "header has no office column"}
	}
	if _, ok := cols["votes"]; !ok {
		return &ParseError{Source: base.Source, Line: 1, Msg: "header has no votes column"}
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &ParseError{Source: base.Source, Line: line, Msg: err.Error()}
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return Cell(record[i])
		}

		office := get("office")
		if !TargetOffice(office) {
			continue
		}

		row := base.CommonRow()
		row.Office = office
		row.District = get("district")
		row.Party = get("party")
		row.FullName = get("candidate")
		row.Votes = Votes(get("votes"))
		row.VotesType = models.VotesType(get("votes_type"))

		if vt, ok := PseudoVotesType(row.FullName); ok {
			row.VotesType = vt
			row.WriteIn = vt == models.VotesWriteIn
		}

		county := get("county")
		precinct := get("precinct")
		congDistrict := get("congressional_district")
		switch {
		case precinct != "":
			row.ReportingLevel = models.LevelPrecinct
			row.Jurisdiction = precinct
			row.ParentJurisdiction = county
			ocd, err := l.ix.PrecinctOCDID(county, precinct)
			if err != nil {
				return &ParseError{Source: base.Source, Line: line, Msg: err.Error()}
			}
			row.OCDID = ocd
		case county != "":
			row.ReportingLevel = models.LevelCounty
			row.Jurisdiction = county
			j, err := l.ix.ByName(county)
			if err != nil {
				return &ParseError{Source: base.Source, Line: line, Msg: err.Error()}
			}
			row.OCDID = j.OCDID
		case congDistrict != "":
			row.ReportingLevel = models.LevelCongressionalDistrict
			row.Jurisdiction = strings.TrimLeft(congDistrict, "0")
			row.OCDID = l.ix.StateOCDID() + "/cd:" + row.Jurisdiction
		default:
			row.ReportingLevel = models.LevelState
			row.Jurisdiction = strings.ToUpper(base.State)
			row.OCDID = l.ix.StateOCDID()
		}

		// closed primaries publish one file per ballot party
		if base.Mapping.Election.PrimaryType == "closed" && row.Party != "" {
			row.PrimaryParty = row.Party
		}

		if err := base.Inserter.Append(ctx, row); err != nil {
			return err
		}
	}
}

func indexHeader(header []string) map[string]int {
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(Cell(name))] = i
	}
	return cols
}
