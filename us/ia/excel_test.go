package ia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"openelex-backend/lib/testutil"
	"openelex-backend/internal/catalog"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

func setupParse(t *testing.T) *pipeline.Context {
	res, cleanup := testutil.SetupPipeline(t, testutil.PipelineParams{
		Name:     "ia-excel",
		DbSchema: datastore.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return pipeline.NewContext(res.DB, catalog.NewClient("http://catalog.invalid"), res.CacheRoot)
}

func parseIndex() *load.JurisdictionIndex {
	return load.NewJurisdictionIndex("ia", []models.Jurisdiction{
		{OCDID: "ocd-division/country:us/state:ia/county:adair", FIPS: "19001", Name: "Adair"},
		{OCDID: "ocd-division/country:us/state:ia/county:polk", FIPS: "19153", Name: "Polk"},
	})
}

func precinctXLSMapping() models.Mapping {
	return models.Mapping{
		GeneratedFilename: "20061107__ia__general__adair__precinct.xls",
		Name:              "Adair",
		OCDID:             "ocd-division/country:us/state:ia/county:adair",
		Election: models.Election{
			Slug:      "ia-2006-11-07-general",
			StartDate: "2006-11-07",
			RaceType:  "general",
		},
	}
}

func rowsBySource(t *testing.T, pctx *pipeline.Context, source string) []models.RawResult {
	rows, err := pctx.Queries.ListRawResultsBySource(context.Background(), source)
	require.NoError(t, err)
	return rows
}

func TestPrecinctXLSParse(t *testing.T) {
	pctx := setupParse(t)
	loader := &PrecinctXLS{pctx: pctx, ds: nil, ix: parseIndex()}
	base := load.NewBase(pctx, nil, precinctXLSMapping())

	rows := [][]string{
		{"ATTORNEY GENERAL"},
		nil,
		{"Precinct", "TOM MILLER", "WRITE-IN"},
		{"1ST WARD", "369", "2"},
		{"ABSENTEE", "524", "0"},
		{"TOTALS", "893", "2"},
		{"COUNTY RECORDER"},
		{"Precinct", "SOMEONE ELSE"},
		{"1ST WARD", "10"},
	}
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, rows))
	require.NoError(t, base.Finish(ctx))

	got := rowsBySource(t, pctx, base.Source)
	require.Len(t, got, 6)

	byKey := map[string]models.RawResult{}
	for _, r := range got {
		byKey[r.FullName+"|"+r.Jurisdiction+"|"+string(r.VotesType)] = r
	}

	precinct := byKey["TOM MILLER|1ST WARD|"]
	require.Equal(t, models.LevelPrecinct, precinct.ReportingLevel)
	require.Equal(t, "Adair", precinct.ParentJurisdiction)
	require.Equal(t, int64(369), precinct.Votes.Int64)
	require.Contains(t, precinct.OCDID, "county:adair/precinct:")

	absentee := byKey["TOM MILLER|Adair|absentee"]
	require.Equal(t, models.LevelCounty, absentee.ReportingLevel)
	require.Equal(t, int64(524), absentee.Votes.Int64)
	require.Equal(t, "ocd-division/country:us/state:ia/county:adair", absentee.OCDID)

	// the TOTALS row is the county grand total, so it keeps the empty
	// votes type
	total := byKey["TOM MILLER|Adair|"]
	require.Equal(t, models.LevelCounty, total.ReportingLevel)
	require.Equal(t, int64(893), total.Votes.Int64)

	writeIn := byKey["WRITE-IN|1ST WARD|write_in"]
	require.True(t, writeIn.WriteIn)
	require.Equal(t, int64(2), writeIn.Votes.Int64)

	// nothing from the county recorder block
	for _, r := range got {
		require.NotEqual(t, "SOMEONE ELSE", r.FullName)
	}
}

func TestPrecinctXLSParseUnknownCounty(t *testing.T) {
	pctx := setupParse(t)
	loader := &PrecinctXLS{pctx: pctx, ds: nil, ix: parseIndex()}
	m := precinctXLSMapping()
	m.Name = "Adaire"
	base := load.NewBase(pctx, nil, m)

	rows := [][]string{
		{"ATTORNEY GENERAL"},
		{"Precinct", "TOM MILLER"},
		{"ABSENTEE", "524"},
	}
	err := loader.parse(context.Background(), base, rows)
	var perr *load.ParseError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Msg, "Adair")
}

func TestCountyXLSParse(t *testing.T) {
	pctx := setupParse(t)
	loader := &CountyXLS{pctx: pctx, ds: nil, ix: parseIndex()}
	base := load.NewBase(pctx, nil, models.Mapping{
		GeneratedFilename: "20100608__ia__primary__county.xls",
		Name:              "Iowa",
		OCDID:             "ocd-division/country:us/state:ia",
		Election: models.Election{
			Slug:        "ia-2010-06-08-primary",
			StartDate:   "2010-06-08",
			RaceType:    "primary",
			PrimaryType: "closed",
		},
	})

	rows := [][]string{
		{"2010 Primary Election Official Results"},
		{"Race", "County", "Candidate", "Party", "Votes"},
		{"Governor", "Adair", "Terry Branstad", "REP", "812"},
		{"Governor", "Polk", "Terry Branstad", "REP", "14,203"},
		{"State Senator District 26", "Adair", "Some Candidate", "DEM", "301"},
		{"County Supervisor", "Adair", "Nobody Tracked", "REP", "99"},
	}
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, rows))
	require.NoError(t, base.Finish(ctx))

	got := rowsBySource(t, pctx, base.Source)
	require.Len(t, got, 3)

	first := got[0]
	require.Equal(t, "Governor", first.Office)
	require.Equal(t, models.LevelCounty, first.ReportingLevel)
	require.Equal(t, "Adair", first.Jurisdiction)
	require.Equal(t, int64(812), first.Votes.Int64)
	// closed primary rows carry the candidate's party as the
	// contest's primary party
	require.Equal(t, "REP", first.PrimaryParty)

	require.Equal(t, int64(14203), got[1].Votes.Int64)

	senate := got[2]
	require.Equal(t, "State Senator", senate.Office)
	require.Equal(t, "26", senate.District)
}

func TestPrecinctXLSXParse(t *testing.T) {
	pctx := setupParse(t)
	loader := &PrecinctXLSX{pctx: pctx, ds: nil, ix: parseIndex()}
	base := load.NewBase(pctx, nil, models.Mapping{
		GeneratedFilename: "20121106__ia__general__precinct.xlsx",
		Name:              "Iowa",
		OCDID:             "ocd-division/country:us/state:ia",
		Election: models.Election{
			Slug:      "ia-2012-11-06-general",
			StartDate: "2012-11-06",
			RaceType:  "general",
		},
	})

	rows := [][]string{
		{"County", "Precinct", "Race", "Candidate", "Party", "Absentee", "Polling", "Final"},
		{"Polk", "DES MOINES 01", "President", "Barack Obama", "DEM", "412", "388", "800"},
		{"Polk", "DES MOINES 01", "President", "Write-In", "", "1", "3", "4"},
	}
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, rows))
	require.NoError(t, base.Finish(ctx))

	got := rowsBySource(t, pctx, base.Source)
	require.Len(t, got, 2)

	obama := got[0]
	require.Equal(t, models.LevelPrecinct, obama.ReportingLevel)
	require.Equal(t, "DES MOINES 01", obama.Jurisdiction)
	require.Equal(t, "Polk", obama.ParentJurisdiction)
	require.Equal(t, int64(800), obama.Votes.Int64)
	require.Equal(t, int64(412), obama.VoteBreakdowns["absentee"])
	require.Equal(t, int64(388), obama.VoteBreakdowns["election_day"])

	writeIn := got[1]
	require.True(t, writeIn.WriteIn)
	require.Equal(t, models.VotesWriteIn, writeIn.VotesType)
}

func TestSplitRace(t *testing.T) {
	office, district := splitRace("State Senator District 026")
	require.Equal(t, "State Senator", office)
	require.Equal(t, "26", district)

	office, district = splitRace("Governor")
	require.Equal(t, "Governor", office)
	require.Equal(t, "", district)

	office, district = splitRace("US Rep District 4")
	require.Equal(t, "US Rep", office)
	require.Equal(t, "4", district)
}
