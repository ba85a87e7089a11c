// Package fixtures loads the shared reference CSVs: offices, parties,
// and the known-count files validators check against. Fixtures load
// once per process.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"

	"openelex-backend/lib/filenames"
	"openelex-backend/internal/models"
)

var (
	mu      sync.Mutex
	offices map[string][]models.Office
	parties map[string][]models.Party
)

// Offices loads <root>/us/fixtures/offices.csv.
func Offices(root string) ([]models.Office, error) {
	mu.Lock()
	defer mu.Unlock()
	if offices == nil {
		offices = map[string][]models.Office{}
	}
	if cached, ok := offices[root]; ok {
		return cached, nil
	}
	var rows []models.Office
	if err := readCSV(filepath.Join(root, "us", "fixtures", "offices.csv"), &rows); err != nil {
		return nil, err
	}
	offices[root] = rows
	return rows, nil
}

// Parties loads <root>/us/fixtures/parties.csv.
func Parties(root string) ([]models.Party, error) {
	mu.Lock()
	defer mu.Unlock()
	if parties == nil {
		parties = map[string][]models.Party{}
	}
	if cached, ok := parties[root]; ok {
		return cached, nil
	}
	var rows []models.Party
	if err := readCSV(filepath.Join(root, "us", "fixtures", "parties.csv"), &rows); err != nil {
		return nil, err
	}
	parties[root] = rows
	return rows, nil
}

// OfficeIndex returns the office fixture keyed by lower-cased name.
func OfficeIndex(root string) (map[string]models.Office, error) {
	rows, err := Offices(root)
	if err != nil {
		return nil, err
	}
	index := make(map[string]models.Office, len(rows))
	for _, o := range rows {
		index[strings.ToLower(o.Name)] = o
	}
	return index, nil
}

// PartyIndex returns the party fixture keyed by upper-cased
// abbreviation.
func PartyIndex(root string) (map[string]models.Party, error) {
	rows, err := Parties(root)
	if err != nil {
		return nil, err
	}
	index := make(map[string]models.Party, len(rows))
	for _, p := range rows {
		index[strings.ToUpper(p.Abbrev)] = p
	}
	return index, nil
}

// CandidateCount is one expected value from a known-counts fixture.
type CandidateCount struct {
	ContestSlug    string `csv:"contest_slug"`
	CandidateSlug  string `csv:"candidate_slug"`
	ReportingLevel string `csv:"reporting_level"`
	Jurisdiction   string `csv:"jurisdiction"`
	Votes          int64  `csv:"votes"`
}

// CandidateCounts loads the counts fixture for one election, named
// candidate_counts__YYYYMMDD__<state>__<race type>.csv under
// <root>/us/<state>/fixtures.
func CandidateCounts(root, state, startDate, raceType string) ([]CandidateCount, error) {
	name := filenames.Standardized(state, startDate, ".csv", filenames.Options{
		RaceType:   raceType,
		PrefixBits: []string{"candidate_counts"},
	})
	var rows []CandidateCount
	path := filepath.Join(root, "us", strings.ToLower(state), "fixtures", name)
	if err := readCSV(path, &rows); err != nil {
		return nil, fmt.Errorf("candidate counts fixture: %w", err)
	}
	return rows, nil
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.UnmarshalFile(f, out)
}
