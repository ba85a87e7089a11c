// Package models holds the entities moved through the pipeline: the
// ephemeral Mapping records produced by a datasource, the append-only
// RawResult rows written by loaders, and the canonical Contest,
// Candidate and Result entities produced by transforms.
package models

import (
	"database/sql"
	"strings"

	"openelex-backend/lib/textutil"
)

// ReportingLevel is the geographic granularity of a result row.
type ReportingLevel string

const (
	LevelState                         ReportingLevel = "state"
	LevelCongressionalDistrict         ReportingLevel = "congressional_district"
	LevelStateLegislative              ReportingLevel = "state_legislative"
	LevelCounty                        ReportingLevel = "county"
	LevelParish                        ReportingLevel = "parish"
	LevelPrecinct                      ReportingLevel = "precinct"
	LevelCongressionalDistrictByCounty ReportingLevel = "congressional_district_by_county"
)

// VotesType is the sub-bucket of a vote total. The empty string is the
// grand total as published by the source.
type VotesType string

const (
	VotesGrandTotal  VotesType = ""
	VotesAbsentee    VotesType = "absentee"
	VotesProvisional VotesType = "provisional"
	VotesElectionDay VotesType = "election_day"
	VotesEarly       VotesType = "early"
	VotesOver        VotesType = "over"
	VotesUnder       VotesType = "under"
	VotesWriteIn     VotesType = "write_in"
	VotesTotal       VotesType = "total"
)

// Jurisdiction is an immutable descriptor loaded from the per-state
// mappings/<state>.csv fixture.
type Jurisdiction struct {
	OCDID   string `csv:"ocd_id"`
	FIPS    string `csv:"fips"`
	Name    string `csv:"name"`
	URLName string `csv:"url_name"`
	County  string `csv:"county"`
}

// PrecinctOCDID composes a precinct identifier under a county by
// appending exactly one /precinct:<slug> segment.
func PrecinctOCDID(countyOCDID, precinct string) string {
	return countyOCDID + "/precinct:" + textutil.OCDTypeID(precinct, true)
}

// Election is a record from the external election-metadata catalog.
type Election struct {
	Slug        string   `json:"slug"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	RaceType    string   `json:"race_type"`
	PrimaryType string   `json:"primary_type"`
	ResultType  string   `json:"result_type"`
	Special     bool     `json:"special"`
	DirectLinks []string `json:"direct_links"`
	PortalLink  string   `json:"portal_link"`
}

// ElectionSlug derives the canonical election identifier,
// {state}-{YYYY-MM-DD}-{race_type} with "special" inserted before the
// race type for special elections.
func ElectionSlug(state, startDate, raceType string, special bool) string {
	bits := []string{strings.ToLower(state), startDate}
	if special {
		bits = append(bits, "special")
	}
	bits = append(bits, raceType)
	return strings.Join(bits, "-")
}

// Year returns the four digit year of the election's start date.
func (e Election) Year() string {
	if len(e.StartDate) < 4 {
		return ""
	}
	return e.StartDate[:4]
}

// Mapping describes one source artifact for one election. Mappings are
// produced by the datasource stage and consumed by fetch and load; they
// are never persisted.
type Mapping struct {
	GeneratedFilename    string
	RawURL               string
	PreProcessedURL      string
	RawExtractedFilename string
	ParentZipfile        string
	OCDID                string
	Name                 string
	Election             Election
	// SkipLoading marks fetch-only artifacts kept for audit.
	SkipLoading bool
}

// URLToFetch is the operator-curated precedence: the preprocessed
// mirror when one exists, the raw publication otherwise.
func (m Mapping) URLToFetch() string {
	if m.PreProcessedURL != "" {
		return m.PreProcessedURL
	}
	return m.RawURL
}

// RawResult is a denormalized row preserving one source cell's vote
// count along with its provenance. The schema is open: states attach
// source-specific keys through Extras.
type RawResult struct {
	ID      int64
	Created string
	Updated string

	Source     string
	ElectionID string

	State        string
	StartDate    string
	EndDate      string
	ElectionType string
	PrimaryType  string
	ResultType   string
	Special      bool

	Office       string
	District     string
	PrimaryParty string

	FullName   string
	GivenName  string
	FamilyName string
	MiddleName string
	Suffix     string
	Party      string
	WriteIn    bool

	ReportingLevel     ReportingLevel
	Jurisdiction       string
	ParentJurisdiction string
	OCDID              string

	// Votes is nullable: one state's loaders record non-numeric cells
	// as NULL rather than zero.
	Votes          sql.NullInt64
	VotesType      VotesType
	VoteBreakdowns map[string]int64
	Extras         map[string]string
}

// Contest is one unique (election, office, district, primary party).
type Contest struct {
	ID           int64
	ElectionID   string
	State        string
	StartDate    string
	EndDate      string
	ElectionType string
	PrimaryType  string
	Special      bool
	Office       string
	District     string
	PrimaryParty string
	Slug         string
}

// ContestSlug derives the deterministic contest identifier from the
// office, district and primary party, e.g. "president-d".
func ContestSlug(office, district, primaryParty string) string {
	slug := textutil.Slugify(office, "-")
	if district != "" {
		slug += "-" + textutil.Slugify(district, "-")
	}
	if primaryParty != "" {
		slug += "-" + strings.ToLower(primaryParty)
	}
	return slug
}

// Candidate is owned by exactly one contest.
type Candidate struct {
	ID          int64
	ElectionID  string
	ContestSlug string
	FullName    string
	GivenName   string
	FamilyName  string
	MiddleName  string
	Suffix      string
	// Aggregate marks pseudo-candidate rows such as "Write-Ins" that
	// stand for a pool of individuals.
	Aggregate bool
	Slug      string
}

// CandidateSlug derives the candidate identifier from the full name.
func CandidateSlug(fullName string) string {
	return textutil.Slugify(fullName, "-")
}

// Result links a contest and candidate to one reported vote total.
type Result struct {
	ID                 int64
	ElectionID         string
	ContestSlug        string
	CandidateSlug      string
	ReportingLevel     ReportingLevel
	Jurisdiction       string
	ParentJurisdiction string
	OCDID              string
	Party              string
	Votes              int64
	VotesType          VotesType
	WriteIn            bool
}

// Office is a reference fixture row, looked up by (state, name,
// district).
type Office struct {
	State    string `csv:"state"`
	Name     string `csv:"name"`
	District string `csv:"district"`
}

// Party is a reference fixture row, looked up by abbreviation.
type Party struct {
	Abbrev string `csv:"abbrev"`
	Name   string `csv:"name"`
}
