package load

import (
	"regexp"
	"strings"

	"openelex-backend/internal/models"
	"openelex-backend/lib/textutil"
)

// PseudoVotesType classifies pseudo-candidate rows such as "OverVote",
// "Under Votes" or "Write-In" into their votes type.
func PseudoVotesType(candidate string) (models.VotesType, bool) {
	norm := textutil.NormalizeName(candidate)
	switch {
	case strings.Contains(norm, "overvote"):
		return models.VotesOver, true
	case strings.Contains(norm, "undervote"):
		return models.VotesUnder, true
	case strings.Contains(norm, "write-in"), strings.Contains(norm, "writein"):
		return models.VotesWriteIn, true
	}
	return models.VotesGrandTotal, false
}

// BreakdownRow classifies jurisdiction cells that are actually
// county-level breakdown labels ("Totals", "ABSENTEE", "PROVISIONAL")
// rather than precincts. Such rows get reassigned to the parent
// jurisdiction with the matching votes type.
func BreakdownRow(jurisdiction string) (models.VotesType, bool) {
	norm := textutil.NormalizeName(jurisdiction)
	switch {
	case strings.Contains(norm, "absentee"):
		return models.VotesAbsentee, true
	case strings.Contains(norm, "provisional"):
		return models.VotesProvisional, true
	case strings.Contains(norm, "electionday"):
		return models.VotesElectionDay, true
	case strings.Contains(norm, "early"):
		return models.VotesEarly, true
	case norm == "total" || norm == "totals" || strings.Contains(norm, "grandtotal"):
		return models.VotesTotal, true
	}
	return models.VotesGrandTotal, false
}

// ExtractDistrict pulls the numeric district out of an office string
// using the state's documented pattern, stripping one leading zero
// unless suppressed.
func ExtractDistrict(office string, pattern *regexp.Regexp, stripLeadingZero bool) string {
	m := pattern.FindStringSubmatch(office)
	if len(m) < 2 {
		return ""
	}
	district := m[1]
	if stripLeadingZero {
		district = strings.TrimLeft(district, "0")
	}
	return district
}
