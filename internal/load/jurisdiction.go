package load

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"openelex-backend/internal/models"
)

// JurisdictionIndex resolves source jurisdiction names to the state's
// fixture rows. Lookups are case-insensitive; a miss carries the
// nearest fixture name in its message so the operator can fix the
// source or the fixture.
type JurisdictionIndex struct {
	state  string
	byName map[string]models.Jurisdiction
	names  []string
}

func NewJurisdictionIndex(state string, rows []models.Jurisdiction) *JurisdictionIndex {
	ix := &JurisdictionIndex{
		state:  strings.ToLower(state),
		byName: make(map[string]models.Jurisdiction, len(rows)),
	}
	for _, j := range rows {
		ix.byName[strings.ToLower(j.Name)] = j
		ix.names = append(ix.names, j.Name)
	}
	return ix
}

// StateOCDID returns the OCD identifier of the state itself.
func (ix *JurisdictionIndex) StateOCDID() string {
	return "ocd-division/country:us/state:" + ix.state
}

func (ix *JurisdictionIndex) ByName(name string) (models.Jurisdiction, error) {
	j, ok := ix.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.Jurisdiction{}, fmt.Errorf(
			"unknown jurisdiction %q for state %s (closest fixture name: %q)",
			name, ix.state, ix.closest(name))
	}
	return j, nil
}

// PrecinctOCDID composes the OCD identifier of a precinct under the
// named county.
func (ix *JurisdictionIndex) PrecinctOCDID(county, precinct string) (string, error) {
	j, err := ix.ByName(county)
	if err != nil {
		return "", err
	}
	return models.PrecinctOCDID(j.OCDID, precinct), nil
}

func (ix *JurisdictionIndex) All() []string { return ix.names }

func (ix *JurisdictionIndex) closest(name string) string {
	best := ""
	bestDist := -1
	for _, candidate := range ix.names {
		d := matchr.Levenshtein(strings.ToLower(name), strings.ToLower(candidate))
		if bestDist < 0 || d < bestDist {
			best = candidate
			bestDist = d
		}
	}
	return best
}
