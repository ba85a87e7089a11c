package wv

import (
	"context"
	"encoding/xml"
	"os"
	"strings"

	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// electionResult mirrors the reporting vendor's per-county XML feed:
// one Contest element per race, one Choice per candidate, VoteType
// children breaking the total down by ballot method.
type electionResult struct {
	XMLName  xml.Name     `xml:"ElectionResult"`
	Region   string       `xml:"Region"`
	Contests []xmlContest `xml:"Contest"`
}

type xmlContest struct {
	Text    string      `xml:"text,attr"`
	Choices []xmlChoice `xml:"Choice"`
}

type xmlChoice struct {
	Text       string        `xml:"text,attr"`
	Party      string        `xml:"party,attr"`
	TotalVotes string        `xml:"totalVotes,attr"`
	VoteTypes  []xmlVoteType `xml:"VoteType"`
}

type xmlVoteType struct {
	Name  string `xml:"name,attr"`
	Votes string `xml:"votes,attr"`
}

// ResultsXML parses the vendor feeds. Vote cells here are not always
// numeric ("-" while a county is still counting), and those are kept
// as NULL rather than zero so they never pollute totals.
type ResultsXML struct {
	pctx *pipeline.Context
	ds   pipeline.Datasource
	ix   *load.JurisdictionIndex
}

func NewResultsXML(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader {
	return func(pctx *pipeline.Context) pipeline.Loader {
		return &ResultsXML{pctx: pctx, ds: ds, ix: ix}
	}
}

func IsResultsXML(m models.Mapping) bool {
	return strings.HasSuffix(m.GeneratedFilename, ".xml")
}

func (l *ResultsXML) Load(ctx context.Context, m models.Mapping) error {
	base := load.NewBase(l.pctx, l.ds, m)
	if err := base.DeletePreviouslyLoaded(ctx); err != nil {
		return err
	}

	raw, err := os.ReadFile(base.Cache.Abs(base.Source))
	if err != nil {
		return err
	}
	var feed electionResult
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}

	county := base.Mapping.Name
	j, err := l.ix.ByName(county)
	if err != nil {
		return &load.ParseError{Source: base.Source, Line: 0, Msg: err.Error()}
	}

	for _, contest := range feed.Contests {
		office, district := splitContest(contest.Text)
		if !load.TargetOffice(office) {
			continue
		}
		for _, choice := range contest.Choices {
			row := base.CommonRow()
			row.Office = office
			row.District = district
			row.FullName = choice.Text
			row.Party = choice.Party
			row.Votes = load.VotesOrNull(choice.TotalVotes)
			row.ReportingLevel = models.LevelCounty
			row.Jurisdiction = county
			row.OCDID = j.OCDID

			if vt, ok := load.PseudoVotesType(choice.Text); ok {
				row.VotesType = vt
				row.WriteIn = vt == models.VotesWriteIn
			}
			if base.Mapping.Election.PrimaryType == "closed" && row.Party != "" {
				row.PrimaryParty = row.Party
			}
			row.VoteBreakdowns = choiceBreakdowns(choice)

			if err := base.Inserter.Append(ctx, row); err != nil {
				return err
			}
		}
	}
	return base.Finish(ctx)
}

func choiceBreakdowns(choice xmlChoice) map[string]int64 {
	if len(choice.VoteTypes) == 0 {
		return nil
	}
	out := map[string]int64{}
	for _, vt := range choice.VoteTypes {
		votes := load.VotesOrNull(vt.Votes)
		if !votes.Valid {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(vt.Name), " ", "_"))
		out[key] = votes.Int64
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitContest separates a contest label such as
// "State Senator 10th District" or "U.S. House of Representatives
// 2nd District" into office and district.
func splitContest(text string) (office, district string) {
	fields := strings.Fields(text)
	for i, f := range fields {
		if !strings.EqualFold(f, "district") {
			continue
		}
		if i > 0 {
			district = strings.TrimRight(strings.ToLower(fields[i-1]), "stndrh")
			office = strings.Join(fields[:i-1], " ")
			return load.Cell(office), strings.TrimLeft(district, "0")
		}
	}
	return load.Cell(text), ""
}
