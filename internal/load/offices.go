package load

import (
	"log/slog"
	"strings"
)

// targetOffices is the predeclared set of offices the pipeline keeps.
// Rows for anything else are silently skipped.
var targetOffices = []string{
	"president",
	"u.s. senate",
	"u.s. senator",
	"united states senator",
	"u.s. house",
	"united states representative",
	"representative in congress",
	"governor",
	"lieutenant governor",
	"secretary of state",
	"attorney general",
	"comptroller",
	"treasurer",
	"auditor of state",
	"state auditor",
	"state senate",
	"state senator",
	"state house",
	"state representative",
	"house of delegates",
	"general assembly",
}

// TargetOffice reports whether an office string belongs to the target
// set. Matching is anchored at the start so trailing district text
// ("State Senator District 26") still matches while county variants of
// a state office ("County Auditor") do not. Unusually short names get
// one info line, to catch spelling drift in a source before it
// silently drops a contest.
func TargetOffice(office string) bool {
	norm := strings.ToLower(strings.TrimSpace(office))
	if norm == "" {
		return false
	}
	for _, t := range targetOffices {
		if strings.HasPrefix(norm, t) {
			return true
		}
	}
	if len(norm) < 6 {
		slog.Info("skipping unusually short office name", "office", office)
	}
	return false
}
