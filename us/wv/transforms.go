package wv

import (
	"openelex-backend/internal/transform"
	"openelex-backend/internal/validate"
)

var rules = transform.Rules{
	OfficeNames: map[string]string{
		"President":                        "President",
		"U.S. Senator":                     "U.S. Senate",
		"U.S. House of Representatives":    "U.S. House",
		"State Auditor":                    "Auditor",
		"State Senator":                    "State Senate",
		"House of Delegates":               "House of Delegates",
		"Member of the House of Delegates": "House of Delegates",
	},
	DistrictOffices: map[string]bool{
		"U.S. House":         true,
		"State Senate":       true,
		"House of Delegates": true,
	},
	PartyAbbrevs: map[string]string{
		"Democrat":    "D",
		"Democratic":  "D",
		"DEM":         "D",
		"Republican":  "R",
		"REP":         "R",
		"Mountain":    "MTN",
		"Libertarian": "LIB",
		"Independent": "I",
	},
	// the vendor feed spells parties consistently, so an unknown one
	// means a vocabulary change worth failing on
	StrictParties:  true,
	AggregateNames: []string{"Write-Ins", "Scattered"},
}

func registerTransforms() {
	transform.RegisterCanonical("wv", rules,
		validate.CandidateCountsMatch("20081104", "general"),
	)
}
