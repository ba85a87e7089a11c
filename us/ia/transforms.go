package ia

import (
	"openelex-backend/internal/transform"
	"openelex-backend/internal/validate"
)

var rules = transform.Rules{
	OfficeNames: map[string]string{
		"President/Vice President":     "President",
		"U.S. Rep.":                    "U.S. House",
		"United States Representative": "U.S. House",
		"U.S. Senator":                 "U.S. Senate",
		"United States Senator":        "U.S. Senate",
		"Governor/Lieutenant Governor": "Governor",
		"Sec. of State":                "Secretary of State",
		"Auditor of State":             "Auditor",
		"State Senator":                "State Senate",
		"State Representative":         "State House",
	},
	DistrictOffices: map[string]bool{
		"U.S. House":   true,
		"State Senate": true,
		"State House":  true,
	},
	PartyAbbrevs: map[string]string{
		"Democrat":              "D",
		"Democratic":            "D",
		"DEM":                   "D",
		"Republican":            "R",
		"REP":                   "R",
		"Green":                 "GRE",
		"Libertarian":           "LIB",
		"No Party":              "NP",
		"Nominated by Petition": "NBP",
	},
	AggregateNames: []string{"Write-In", "Write-Ins", "Scattering"},
}

func registerTransforms() {
	// county grand totals fold in absentee ballots, so county and
	// precinct sums are expected to disagree; only the audited counts
	// fixture is checked
	transform.RegisterCanonical("ia", rules,
		validate.CandidateCountsMatch("20061107", "general"),
	)
}
