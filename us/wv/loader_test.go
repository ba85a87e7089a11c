package wv

import (
	"context"
	"os"
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
		Name:     "wv-loader",
		DbSchema: datastore.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return pipeline.NewContext(res.DB, catalog.NewClient("http://catalog.invalid"), res.CacheRoot)
}

func loaderIndex() *load.JurisdictionIndex {
	return load.NewJurisdictionIndex("wv", []models.Jurisdiction{
		{OCDID: "ocd-division/country:us/state:wv/county:kanawha", FIPS: "54039", Name: "Kanawha"},
		{OCDID: "ocd-division/country:us/state:wv/county:barbour", FIPS: "54001", Name: "Barbour"},
	})
}

func writeCached(t *testing.T, pctx *pipeline.Context, name, content string) {
	c := pctx.CacheFor("wv")
	require.NoError(t, c.Ensure())
	require.NoError(t, os.WriteFile(c.Abs(name), []byte(content), 0o644))
}

func loadedRows(t *testing.T, pctx *pipeline.Context, source string) []models.RawResult {
	rows, err := pctx.Queries.ListRawResultsBySource(context.Background(), source)
	require.NoError(t, err)
	return rows
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<ElectionResult>
  <Region>Kanawha</Region>
  <Contest text="Governor">
    <Choice text="Joe Manchin" party="DEM" totalVotes="41823">
      <VoteType name="Election Day" votes="30001" />
      <VoteType name="Absentee" votes="11822" />
    </Choice>
    <Choice text="Russ Weeks" party="REP" totalVotes="-" />
  </Contest>
  <Contest text="State Senator 8th District">
    <Choice text="Some Senator" party="DEM" totalVotes="10400" />
  </Contest>
  <Contest text="County Commissioner">
    <Choice text="Local Person" party="REP" totalVotes="3000" />
  </Contest>
</ElectionResult>`

func xmlMapping() models.Mapping {
	return models.Mapping{
		GeneratedFilename: "20081104__wv__general__kanawha__county.xml",
		Name:              "Kanawha",
		OCDID:             "ocd-division/country:us/state:wv/county:kanawha",
		Election: models.Election{
			Slug:      "wv-2008-11-04-general",
			StartDate: "2008-11-04",
			RaceType:  "general",
		},
	}
}

func TestResultsXMLLoad(t *testing.T) {
	pctx := setupLoader(t)
	m := xmlMapping()
	writeCached(t, pctx, m.GeneratedFilename, feedXML)

	loader := &ResultsXML{pctx: pctx, ds: nil, ix: loaderIndex()}
	ctx := context.Background()
	require.NoError(t, loader.Load(ctx, m))

	rows := loadedRows(t, pctx, m.GeneratedFilename)
	require.Len(t, rows, 3)

	manchin := rows[0]
	require.Equal(t, "Governor", manchin.Office)
	require.Equal(t, models.LevelCounty, manchin.ReportingLevel)
	require.Equal(t, "Kanawha", manchin.Jurisdiction)
	require.Equal(t, int64(41823), manchin.Votes.Int64)
	require.Equal(t, int64(30001), manchin.VoteBreakdowns["election_day"])
	require.Equal(t, int64(11822), manchin.VoteBreakdowns["absentee"])

	// a county still counting reports "-", which must stay NULL
	weeks := rows[1]
	require.False(t, weeks.Votes.Valid)

	senator := rows[2]
	require.Equal(t, "State Senator", senator.Office)
	require.Equal(t, "8", senator.District)
}

func TestResultsXMLLoadIdempotent(t *testing.T) {
	pctx := setupLoader(t)
	m := xmlMapping()
	writeCached(t, pctx, m.GeneratedFilename, feedXML)

	loader := &ResultsXML{pctx: pctx, ds: nil, ix: loaderIndex()}
	ctx := context.Background()
	require.NoError(t, loader.Load(ctx, m))
	require.NoError(t, loader.Load(ctx, m))
	require.Len(t, loadedRows(t, pctx, m.GeneratedFilename), 3)
}

const resultsHTML = `<html><body>
<h2>Secretary of State</h2>
<table>
  <tr><th>Candidate</th><th>Party</th><th>Votes</th></tr>
  <tr><td>Ken Hechler</td><td>DEM</td><td>12,401</td></tr>
  <tr><td>Write-Ins</td><td></td><td>77</td></tr>
</table>
<h2>Board of Education</h2>
<table>
  <tr><th>Candidate</th><th>Party</th><th>Votes</th></tr>
  <tr><td>Nobody Tracked</td><td></td><td>500</td></tr>
</table>
</body></html>`

func TestResultsHTMLLoad(t *testing.T) {
	pctx := setupLoader(t)
	m := models.Mapping{
		GeneratedFilename: "20001107__wv__general__barbour__county.html",
		Name:              "Barbour",
		OCDID:             "ocd-division/country:us/state:wv/county:barbour",
		Election: models.Election{
			Slug:      "wv-2000-11-07-general",
			StartDate: "2000-11-07",
			RaceType:  "general",
		},
	}
	writeCached(t, pctx, m.GeneratedFilename, resultsHTML)

	loader := &ResultsHTML{pctx: pctx, ds: nil, ix: loaderIndex()}
	ctx := context.Background()
	require.NoError(t, loader.Load(ctx, m))

	rows := loadedRows(t, pctx, m.GeneratedFilename)
	require.Len(t, rows, 2)

	hechler := rows[0]
	require.Equal(t, "Secretary of State", hechler.Office)
	require.Equal(t, "Barbour", hechler.Jurisdiction)
	require.Equal(t, int64(12401), hechler.Votes.Int64)

	writeIns := rows[1]
	require.True(t, writeIns.WriteIn)
	require.Equal(t, models.VotesWriteIn, writeIns.VotesType)
}

func TestLoaderPredicates(t *testing.T) {
	require.True(t, IsResultsXML(xmlMapping()))

	m := models.Mapping{GeneratedFilename: "20001107__wv__general__barbour__county.html"}
	require.True(t, IsResultsHTML(m))

	m.GeneratedFilename = "20110514__wv__special__general__portal.html"
	require.False(t, IsResultsHTML(m))
}

func TestSplitContest(t *testing.T) {
	office, district := splitContest("State Senator 10th District")
	require.Equal(t, "State Senator", office)
	require.Equal(t, "10", district)

	office, district = splitContest("U.S. House of Representatives 2nd District")
	require.Equal(t, "U.S. House of Representatives", office)
	require.Equal(t, "2", district)

	office, district = splitContest("Governor")
	require.Equal(t, "Governor", office)
	require.Equal(t, "", district)
}
