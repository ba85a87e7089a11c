package transform

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"openelex-backend/lib/testutil"
	"openelex-backend/internal/catalog"
	"openelex-backend/internal/datastore"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

var testRules = Rules{
	OfficeNames: map[string]string{
		"President - Vice Pres": "President",
		"State Senator":         "State Senate",
	},
	DistrictOffices: map[string]bool{"State Senate": true},
	PartyAbbrevs: map[string]string{
		"Democratic": "D",
		"Republican": "R",
	},
	AggregateNames: []string{"Write-Ins"},
}

func init() {
	RegisterCanonical("xx", testRules)
}

func setupTransform(t *testing.T) *pipeline.Context {
	res, cleanup := testutil.SetupPipeline(t, testutil.PipelineParams{
		Name:     "transform",
		DbSchema: datastore.Schema,
	})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	// the repo root, so the shared office and party fixtures resolve
	return pipeline.NewContext(res.DB, catalog.NewClient("http://catalog.invalid"), "../..")
}

func seedRaw(t *testing.T, pctx *pipeline.Context, office, district, name, party, county string, votes int64) {
	t.Helper()
	err := pctx.Queries.CreateRawResult(context.Background(), models.RawResult{
		Created:        "2026-01-01T00:00:00Z",
		Updated:        "2026-01-01T00:00:00Z",
		Source:         "20121106__xx__general__county.csv",
		ElectionID:     "xx-2012-11-06-general",
		State:          "XX",
		StartDate:      "2012-11-06",
		ElectionType:   "general",
		Office:         office,
		District:       district,
		FullName:       name,
		Party:          party,
		ReportingLevel: models.LevelCounty,
		Jurisdiction:   county,
		Votes:          sql.NullInt64{Int64: votes, Valid: true},
	})
	require.NoError(t, err)
}

func seedElection(t *testing.T, pctx *pipeline.Context) {
	seedRaw(t, pctx, "President - Vice Pres", "", "Jane A. Smith", "Democratic", "North", 120)
	seedRaw(t, pctx, "President - Vice Pres", "", "Jane A. Smith", "Democratic", "South", 80)
	seedRaw(t, pctx, "President - Vice Pres", "", "John Doe", "Republican", "North", 90)
	seedRaw(t, pctx, "State Senator", "026", "Write-Ins", "", "North", 4)
}

func TestCanonicalTransformsEndToEnd(t *testing.T) {
	pctx := setupTransform(t)
	seedElection(t, pctx)
	ctx := context.Background()

	require.NoError(t, Run(ctx, pctx, "xx", Selection{}))

	contests, err := pctx.Queries.ListContests(ctx, "xx-2012-11-06-general")
	require.NoError(t, err)
	require.Len(t, contests, 2)
	require.Equal(t, "president", contests[0].Slug)
	require.Equal(t, "President", contests[0].Office)
	require.Equal(t, "state-senate-26", contests[1].Slug)
	require.Equal(t, "26", contests[1].District)

	candidates, err := pctx.Queries.ListCandidates(ctx, "xx-2012-11-06-general", "president")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		switch c.Slug {
		case "jane-a-smith":
			require.Equal(t, "Jane", c.GivenName)
			require.Equal(t, "Smith", c.FamilyName)
			require.False(t, c.Aggregate)
		case "john-doe":
			require.Equal(t, "Doe", c.FamilyName)
		default:
			t.Fatalf("unexpected candidate %q", c.Slug)
		}
	}

	writeIns, err := pctx.Queries.ListCandidates(ctx, "xx-2012-11-06-general", "state-senate-26")
	require.NoError(t, err)
	require.Len(t, writeIns, 1)
	require.True(t, writeIns[0].Aggregate)
	require.Empty(t, writeIns[0].FamilyName)

	results, err := pctx.Queries.ListResults(ctx, "xx-2012-11-06-general", "president")
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "D", results[0].Party)

	total, err := pctx.Queries.SumVotesByLevel(ctx,
		"xx-2012-11-06-general", "president", "jane-a-smith", models.LevelCounty)
	require.NoError(t, err)
	require.EqualValues(t, 200, total)
}

func TestRunIsIdempotent(t *testing.T) {
	pctx := setupTransform(t)
	seedElection(t, pctx)
	ctx := context.Background()

	require.NoError(t, Run(ctx, pctx, "xx", Selection{}))
	require.NoError(t, Run(ctx, pctx, "xx", Selection{}))

	n, err := pctx.Queries.CountResultsByState(ctx, "xx")
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	contests, err := pctx.Queries.CountContestsByState(ctx, "xx")
	require.NoError(t, err)
	require.EqualValues(t, 2, contests)
}

func TestReverseClearsOutput(t *testing.T) {
	pctx := setupTransform(t)
	seedElection(t, pctx)
	ctx := context.Background()

	require.NoError(t, Run(ctx, pctx, "xx", Selection{}))
	require.NoError(t, Reverse(ctx, pctx, "xx", Selection{}))

	n, err := pctx.Queries.CountResultsByState(ctx, "xx")
	require.NoError(t, err)
	require.Zero(t, n)

	// raw rows are untouched by reverses
	raw, err := pctx.Queries.CountRawResultsByState(ctx, "xx")
	require.NoError(t, err)
	require.EqualValues(t, 4, raw)
}

func TestSelectionRules(t *testing.T) {
	pctx := setupTransform(t)
	seedElection(t, pctx)
	ctx := context.Background()

	err := Run(ctx, pctx, "xx", Selection{
		Include: []string{"create_unique_contests"},
		Exclude: []string{"create_unique_results"},
	})
	require.ErrorContains(t, err, "cannot be combined")

	err = Run(ctx, pctx, "xx", Selection{Include: []string{"no_such_transform"}})
	require.ErrorContains(t, err, "unknown transform")

	require.NoError(t, Run(ctx, pctx, "xx", Selection{Include: []string{"create_unique_contests"}}))
	contests, err := pctx.Queries.CountContestsByState(ctx, "xx")
	require.NoError(t, err)
	require.EqualValues(t, 2, contests)
	results, err := pctx.Queries.CountResultsByState(ctx, "xx")
	require.NoError(t, err)
	require.Zero(t, results)
}

func TestContestsRequireFixtureOffice(t *testing.T) {
	pctx := setupTransform(t)
	seedRaw(t, pctx, "Clerk of Courts", "", "Jane A. Smith", "Democratic", "North", 12)

	err := createContests(testRules)(context.Background(), pctx, "xx")
	require.ErrorContains(t, err, `office "Clerk of Courts" is not in the reference fixture`)
	require.ErrorContains(t, err, "closest")
}

func TestContestsDropDistrictsPerFixture(t *testing.T) {
	pctx := setupTransform(t)
	// a statewide office with source noise in the district column
	seedRaw(t, pctx, "Governor", "3", "Jane A. Smith", "Democratic", "North", 12)
	ctx := context.Background()

	rules := testRules
	rules.DistrictOffices = map[string]bool{"Governor": true}
	require.NoError(t, createContests(rules)(ctx, pctx, "xx"))

	contests, err := pctx.Queries.ListContests(ctx, "xx-2012-11-06-general")
	require.NoError(t, err)
	require.Len(t, contests, 1)
	require.Equal(t, "governor", contests[0].Slug)
	require.Empty(t, contests[0].District)
}

func TestResultsRequireFixtureParty(t *testing.T) {
	pctx := setupTransform(t)
	seedRaw(t, pctx, "Governor", "", "Jane A. Smith", "Whig", "North", 12)

	rules := testRules
	rules.PartyAbbrevs = map[string]string{"Whig": "WHG"}
	err := createResults(rules)(context.Background(), pctx, "xx")
	require.ErrorContains(t, err, `party abbreviation "WHG" is not in the reference fixture`)
}

func TestRunUnknownState(t *testing.T) {
	pctx := setupTransform(t)
	require.Error(t, Run(context.Background(), pctx, "yy", Selection{}))
}

func TestRulesVocabulary(t *testing.T) {
	require.Equal(t, "President", testRules.Office("president - vice pres"))
	require.Equal(t, "Unlisted Office", testRules.Office("Unlisted Office"))

	require.Equal(t, "26", testRules.District("State Senate", "026"))
	require.Equal(t, "", testRules.District("President", "26"))
	require.Equal(t, "0", testRules.District("State Senate", "000"))

	party, err := testRules.Party("democratic")
	require.NoError(t, err)
	require.Equal(t, "D", party)

	party, err = testRules.Party("Whig")
	require.NoError(t, err)
	require.Equal(t, "UN", party)

	strict := testRules
	strict.StrictParties = true
	_, err = strict.Party("Whig")
	require.Error(t, err)
}
