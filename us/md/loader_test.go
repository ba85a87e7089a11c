package md

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"openelex-backend/lib/testutil"
	"openelex-backend/internal/catalog"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/load"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

func setupLoader(t *testing.T) *pipeline.Context {
	res, cleanup := testutil.SetupPipeline(t, testutil.PipelineParams{
		Name:     "md-loader",
		DbSchema: datastore.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return pipeline.NewContext(res.DB, catalog.NewClient("http://catalog.invalid"), res.CacheRoot)
}

func loaderIndex() *load.JurisdictionIndex {
	return load.NewJurisdictionIndex("md", []models.Jurisdiction{
		{OCDID: "ocd-division/country:us/state:md/county:allegany", FIPS: "24001", Name: "Allegany"},
		{OCDID: "ocd-division/country:us/state:md/county:montgomery", FIPS: "24031", Name: "Montgomery"},
	})
}

func countyMapping() models.Mapping {
	return models.Mapping{
		GeneratedFilename: "20061107__md__general__allegany__county.csv",
		Name:              "Allegany",
		OCDID:             "ocd-division/country:us/state:md/county:allegany",
		Election: models.Election{
			Slug:      "md-2006-11-07-general",
			StartDate: "2006-11-07",
			RaceType:  "general",
		},
	}
}

func loadedRows(t *testing.T, pctx *pipeline.Context, source string) []models.RawResult {
	rows, err := pctx.Queries.ListRawResultsBySource(context.Background(), source)
	require.NoError(t, err)
	return rows
}

func TestResultsCSVCountyLevel(t *testing.T) {
	pctx := setupLoader(t)
	loader := &ResultsCSV{pctx: pctx, ds: nil, ix: loaderIndex()}
	base := load.NewBase(pctx, nil, countyMapping())

	src := strings.Join([]string{
		"Office Name,Office District,Party,Candidate Name,Write-In?,Election Night Votes,Absentees Votes,Provisional Votes,Total Votes",
		`Governor,,REP,Robert L. Ehrlich,,"10,214",512,33,"10,759"`,
		"Governor,,DEM,Martin O'Malley,,9850,601,41,10492",
		"Governor,,,Other Write-Ins,Y,12,0,0,12",
		"Judge of the Circuit Court,,REP,Somebody Judicial,,500,0,0,500",
	}, "\n")
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, strings.NewReader(src)))
	require.NoError(t, base.Finish(ctx))

	rows := loadedRows(t, pctx, base.Source)
	require.Len(t, rows, 3)

	ehrlich := rows[0]
	require.Equal(t, models.LevelCounty, ehrlich.ReportingLevel)
	require.Equal(t, "Allegany", ehrlich.Jurisdiction)
	require.Equal(t, "ocd-division/country:us/state:md/county:allegany", ehrlich.OCDID)
	require.Equal(t, int64(10759), ehrlich.Votes.Int64)
	require.Equal(t, int64(10214), ehrlich.VoteBreakdowns["election_night"])
	require.Equal(t, int64(512), ehrlich.VoteBreakdowns["absentee"])
	require.Equal(t, int64(33), ehrlich.VoteBreakdowns["provisional"])

	writeIns := rows[2]
	require.True(t, writeIns.WriteIn)
	require.Equal(t, "Other Write-Ins", writeIns.FullName)
}

func TestResultsCSVPrecinctLevel(t *testing.T) {
	pctx := setupLoader(t)
	loader := &ResultsCSV{pctx: pctx, ds: nil, ix: loaderIndex()}
	m := countyMapping()
	m.GeneratedFilename = "20061107__md__general__allegany__precinct.csv"
	base := load.NewBase(pctx, nil, m)

	src := strings.Join([]string{
		"Office Name,Office District,Party,Candidate First Name,Candidate Middle Name,Candidate Last Name,Write-In?,Election District,Election Precinct,Election Night Votes",
		"U.S. Senator,,DEM,Ben,,Cardin,,01,001,412",
	}, "\n")
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, strings.NewReader(src)))
	require.NoError(t, base.Finish(ctx))

	rows := loadedRows(t, pctx, base.Source)
	require.Len(t, rows, 1)

	cardin := rows[0]
	require.Equal(t, models.LevelPrecinct, cardin.ReportingLevel)
	require.Equal(t, "01-001", cardin.Jurisdiction)
	require.Equal(t, "Allegany", cardin.ParentJurisdiction)
	// the combined-column vintage is missing, so the name reassembles
	// from the split columns
	require.Equal(t, "Ben Cardin", cardin.FullName)
	require.Equal(t, "Ben", cardin.GivenName)
	require.Equal(t, "Cardin", cardin.FamilyName)
	require.Equal(t, int64(412), cardin.Votes.Int64)
	require.Contains(t, cardin.OCDID, "county:allegany/precinct:")
}

func TestResultsCSVStateLegislativeLevel(t *testing.T) {
	pctx := setupLoader(t)
	loader := &ResultsCSV{pctx: pctx, ds: nil, ix: loaderIndex()}
	m := countyMapping()
	m.GeneratedFilename = "20121106__md__general__state_legislative.csv"
	m.Name = "Maryland"
	m.OCDID = "ocd-division/country:us/state:md"
	m.Election = models.Election{
		Slug:      "md-2012-11-06-general",
		StartDate: "2012-11-06",
		RaceType:  "general",
	}
	base := load.NewBase(pctx, nil, m)

	src := strings.Join([]string{
		"Office Name,Office District,Party,Candidate Name,Write-In?,State Legislative District,Total Votes",
		"President and Vice Pres,,DEM,Barack Obama,,01B,9123",
	}, "\n")
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, strings.NewReader(src)))
	require.NoError(t, base.Finish(ctx))

	rows := loadedRows(t, pctx, base.Source)
	require.Len(t, rows, 1)
	require.Equal(t, models.LevelStateLegislative, rows[0].ReportingLevel)
	require.Equal(t, "01B", rows[0].Jurisdiction)
	require.Equal(t, "ocd-division/country:us/state:md/sldl:1b", rows[0].OCDID)
}

func TestResultsCSVClosedPrimaryParty(t *testing.T) {
	pctx := setupLoader(t)
	loader := &ResultsCSV{pctx: pctx, ds: nil, ix: loaderIndex()}
	m := countyMapping()
	m.GeneratedFilename = "20060912__md__primary__allegany__county.csv"
	m.Election = models.Election{
		Slug:        "md-2006-09-12-primary",
		StartDate:   "2006-09-12",
		RaceType:    "primary",
		PrimaryType: "closed",
	}
	base := load.NewBase(pctx, nil, m)

	src := strings.Join([]string{
		"Office Name,Office District,Party,Candidate Name,Write-In?,Total Votes",
		"Governor,,DEM,Martin O'Malley,,4102",
	}, "\n")
	ctx := context.Background()
	require.NoError(t, loader.parse(ctx, base, strings.NewReader(src)))
	require.NoError(t, base.Finish(ctx))

	rows := loadedRows(t, pctx, base.Source)
	require.Len(t, rows, 1)
	require.Equal(t, "DEM", rows[0].PrimaryParty)
}

func TestIsResultsCSV(t *testing.T) {
	require.True(t, IsResultsCSV(countyMapping()))

	m := countyMapping()
	m.PreProcessedURL = "https://example.invalid/cleaned.csv"
	require.False(t, IsResultsCSV(m))
}
