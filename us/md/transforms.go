package md

import (
	"context"
	"time"

	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
	"openelex-backend/internal/transform"
	"openelex-backend/internal/validate"
)

var rules = transform.Rules{
	OfficeNames: map[string]string{
		"President - Vice Pres":      "President",
		"President and Vice Pres":    "President",
		"U.S. Senator":               "U.S. Senate",
		"Representative in Congress": "U.S. House",
		"State Senator":              "State Senate",
		"House of Delegates":         "House of Delegates",
		"Comptroller of Maryland":    "Comptroller",
	},
	DistrictOffices: map[string]bool{
		"U.S. House":         true,
		"State Senate":       true,
		"House of Delegates": true,
	},
	PartyAbbrevs: map[string]string{
		"Democrat":     "D",
		"Democratic":   "D",
		"DEM":          "D",
		"Republican":   "R",
		"REP":          "R",
		"Green":        "GRE",
		"Libertarian":  "LIB",
		"Constitution": "CON",
		"Unaffiliated": "UNF",
		"Other":        "OTH",
	},
	AggregateNames: []string{"Other Write-Ins", "Write-Ins"},
}

// countySpellings are the misspellings the board's own files carry,
// keyed by what the source says.
var countySpellings = map[string]string{
	"Prince Georges": "Prince George's",
	"Queen Annes":    "Queen Anne's",
	"St. Marys":      "St. Mary's",
	"Baltimore Co.":  "Baltimore",
	"Balto. City":    "Baltimore City",
}

func fixCountySpellings(ctx context.Context, pctx *pipeline.Context, state string) error {
	updated := time.Now().UTC().Format(time.RFC3339)
	for from, to := range countySpellings {
		n, err := pctx.Queries.RenameRawResultJurisdiction(ctx, state, from, to, updated)
		if err != nil {
			return err
		}
		if n > 0 {
			pctx.Log.Info("renamed jurisdiction", "state", state, "from", from, "to", to, "rows", n)
		}
	}
	return nil
}

func registerTransforms() {
	transform.Register("md", transform.Transform{
		Name: "fix_county_spellings",
		Run:  fixCountySpellings,
		Raw:  true,
	})
	transform.RegisterCanonical("md", rules,
		validate.CandidateCountsMatch("20000307", "primary"),
		validate.ResultCountAtLevel("md-2000-03-07-primary", "president-d",
			models.LevelCongressionalDistrict, 32),
		validate.LevelsConsistent("md-2000-03-07-primary", "president-d", "al-gore",
			models.LevelCongressionalDistrict, models.LevelCounty),
	)
}
