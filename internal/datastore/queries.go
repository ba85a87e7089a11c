package datastore

import (
	"context"
	"database/sql"
	"encoding/json"

	"openelex-backend/internal/models"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createRawResult = `
INSERT INTO raw_results (
	created, updated, source, election_id, state, start_date, end_date,
	election_type, primary_type, result_type, special,
	office, district, primary_party,
	full_name, given_name, family_name, middle_name, suffix, party, write_in,
	reporting_level, jurisdiction, parent_jurisdiction, ocd_id,
	votes, votes_type, vote_breakdowns, extras
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateRawResult(ctx context.Context, r models.RawResult) error {
	breakdowns, err := encodeJSONMapInt(r.VoteBreakdowns)
	if err != nil {
		return err
	}
	extras, err := encodeJSONMapString(r.Extras)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, createRawResult,
		r.Created, r.Updated, r.Source, r.ElectionID, r.State, r.StartDate, r.EndDate,
		r.ElectionType, r.PrimaryType, r.ResultType, boolToInt(r.Special),
		r.Office, r.District, r.PrimaryParty,
		r.FullName, r.GivenName, r.FamilyName, r.MiddleName, r.Suffix, r.Party, boolToInt(r.WriteIn),
		string(r.ReportingLevel), r.Jurisdiction, r.ParentJurisdiction, r.OCDID,
		r.Votes, string(r.VotesType), breakdowns, extras,
	)
	return err
}

func (q *Queries) DeleteRawResultsBySource(ctx context.Context, source string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM raw_results WHERE source = ?`, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CountRawResultsBySource(ctx context.Context, source string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_results WHERE source = ?`, source).Scan(&n)
	return n, err
}

const rawResultColumns = `
	id, created, updated, source, election_id, state, start_date, end_date,
	election_type, primary_type, result_type, special,
	office, district, primary_party,
	full_name, given_name, family_name, middle_name, suffix, party, write_in,
	reporting_level, jurisdiction, parent_jurisdiction, ocd_id,
	votes, votes_type, vote_breakdowns, extras
`

func (q *Queries) scanRawResults(rows *sql.Rows) ([]models.RawResult, error) {
	defer rows.Close()
	var out []models.RawResult
	for rows.Next() {
		var r models.RawResult
		var special, writeIn int64
		var level, votesType, breakdowns, extras string
		err := rows.Scan(
			&r.ID, &r.Created, &r.Updated, &r.Source, &r.ElectionID, &r.State, &r.StartDate, &r.EndDate,
			&r.ElectionType, &r.PrimaryType, &r.ResultType, &special,
			&r.Office, &r.District, &r.PrimaryParty,
			&r.FullName, &r.GivenName, &r.FamilyName, &r.MiddleName, &r.Suffix, &r.Party, &writeIn,
			&level, &r.Jurisdiction, &r.ParentJurisdiction, &r.OCDID,
			&r.Votes, &votesType, &breakdowns, &extras,
		)
		if err != nil {
			return nil, err
		}
		r.Special = special != 0
		r.WriteIn = writeIn != 0
		r.ReportingLevel = models.ReportingLevel(level)
		r.VotesType = models.VotesType(votesType)
		if err := json.Unmarshal([]byte(breakdowns), &r.VoteBreakdowns); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(extras), &r.Extras); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) ListRawResultsBySource(ctx context.Context, source string) ([]models.RawResult, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+rawResultColumns+` FROM raw_results WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, err
	}
	return q.scanRawResults(rows)
}

// ListRawResultsByState returns every raw row belonging to a state's
// elections, the working set of the raw-scoped fixup transforms.
func (q *Queries) ListRawResultsByState(ctx context.Context, state string) ([]models.RawResult, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+rawResultColumns+` FROM raw_results WHERE election_id LIKE ? ORDER BY id`,
		statePattern(state))
	if err != nil {
		return nil, err
	}
	return q.scanRawResults(rows)
}

func (q *Queries) CountRawResultsByState(ctx context.Context, state string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_results WHERE election_id LIKE ?`, statePattern(state)).Scan(&n)
	return n, err
}

// UpdateRawResultJurisdiction rewrites a jurisdiction string across one
// source file, used by state fixup transforms for misspelled names.
func (q *Queries) UpdateRawResultJurisdiction(ctx context.Context, source, from, to, updated string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE raw_results SET jurisdiction = ?, updated = ? WHERE source = ? AND jurisdiction = ?`,
		to, updated, source, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RenameRawResultJurisdiction is the state-wide variant, covering every
// source file of a state's elections at once.
func (q *Queries) RenameRawResultJurisdiction(ctx context.Context, state, from, to, updated string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE raw_results SET jurisdiction = ?, updated = ? WHERE election_id LIKE ? AND jurisdiction = ?`,
		to, updated, statePattern(state), from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ContestTuple is one distinct (election, office, district, primary
// party) aggregated from raw rows.
type ContestTuple struct {
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
}

func (q *Queries) DistinctContests(ctx context.Context, state string) ([]ContestTuple, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT election_id, state, start_date, end_date,
			election_type, primary_type, special, office, district, primary_party
		FROM raw_results WHERE election_id LIKE ? ORDER BY election_id, office, district, primary_party`,
		statePattern(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContestTuple
	for rows.Next() {
		var t ContestTuple
		var special int64
		err := rows.Scan(&t.ElectionID, &t.State, &t.StartDate, &t.EndDate,
			&t.ElectionType, &t.PrimaryType, &special, &t.Office, &t.District, &t.PrimaryParty)
		if err != nil {
			return nil, err
		}
		t.Special = special != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// CandidateTuple is one distinct candidate within a contest tuple.
type CandidateTuple struct {
	ElectionID   string
	Office       string
	District     string
	PrimaryParty string
	FullName     string
	GivenName    string
	FamilyName   string
	MiddleName   string
	Suffix       string
}

func (q *Queries) DistinctCandidates(ctx context.Context, state string) ([]CandidateTuple, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT election_id, office, district, primary_party,
			full_name, given_name, family_name, middle_name, suffix
		FROM raw_results WHERE election_id LIKE ? ORDER BY election_id, office, full_name`,
		statePattern(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CandidateTuple
	for rows.Next() {
		var t CandidateTuple
		err := rows.Scan(&t.ElectionID, &t.Office, &t.District, &t.PrimaryParty,
			&t.FullName, &t.GivenName, &t.FamilyName, &t.MiddleName, &t.Suffix)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CreateContest(ctx context.Context, c models.Contest) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO contests (
			election_id, state, start_date, end_date, election_type, primary_type,
			special, office, district, primary_party, slug
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ElectionID, c.State, c.StartDate, c.EndDate, c.ElectionType, c.PrimaryType,
		boolToInt(c.Special), c.Office, c.District, c.PrimaryParty, c.Slug)
	return err
}

func (q *Queries) DeleteContestsByState(ctx context.Context, state string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM contests WHERE election_id LIKE ?`, statePattern(state))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListContests(ctx context.Context, electionID string) ([]models.Contest, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, election_id, state, start_date, end_date, election_type, primary_type,
			special, office, district, primary_party, slug
		FROM contests WHERE election_id = ? ORDER BY slug`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Contest
	for rows.Next() {
		var c models.Contest
		var special int64
		err := rows.Scan(&c.ID, &c.ElectionID, &c.State, &c.StartDate, &c.EndDate,
			&c.ElectionType, &c.PrimaryType, &special, &c.Office, &c.District, &c.PrimaryParty, &c.Slug)
		if err != nil {
			return nil, err
		}
		c.Special = special != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) CountContestsByState(ctx context.Context, state string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contests WHERE election_id LIKE ?`, statePattern(state)).Scan(&n)
	return n, err
}

func (q *Queries) CreateCandidate(ctx context.Context, c models.Candidate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO candidates (
			election_id, contest_slug, full_name, given_name, family_name,
			middle_name, suffix, aggregate, slug
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ElectionID, c.ContestSlug, c.FullName, c.GivenName, c.FamilyName,
		c.MiddleName, c.Suffix, boolToInt(c.Aggregate), c.Slug)
	return err
}

func (q *Queries) DeleteCandidatesByState(ctx context.Context, state string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM candidates WHERE election_id LIKE ?`, statePattern(state))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListCandidates(ctx context.Context, electionID, contestSlug string) ([]models.Candidate, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, election_id, contest_slug, full_name, given_name, family_name,
			middle_name, suffix, aggregate, slug
		FROM candidates WHERE election_id = ? AND contest_slug = ? ORDER BY slug`,
		electionID, contestSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Candidate
	for rows.Next() {
		var c models.Candidate
		var aggregate int64
		err := rows.Scan(&c.ID, &c.ElectionID, &c.ContestSlug, &c.FullName, &c.GivenName,
			&c.FamilyName, &c.MiddleName, &c.Suffix, &aggregate, &c.Slug)
		if err != nil {
			return nil, err
		}
		c.Aggregate = aggregate != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) CountCandidates(ctx context.Context, electionID, contestSlug string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidates WHERE election_id = ? AND contest_slug = ?`,
		electionID, contestSlug).Scan(&n)
	return n, err
}

func (q *Queries) CountCandidatesByState(ctx context.Context, state string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidates WHERE election_id LIKE ?`, statePattern(state)).Scan(&n)
	return n, err
}

func (q *Queries) CreateResult(ctx context.Context, r models.Result) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO results (
			election_id, contest_slug, candidate_slug, reporting_level, jurisdiction,
			parent_jurisdiction, ocd_id, party, votes, votes_type, write_in
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ElectionID, r.ContestSlug, r.CandidateSlug, string(r.ReportingLevel), r.Jurisdiction,
		r.ParentJurisdiction, r.OCDID, r.Party, r.Votes, string(r.VotesType), boolToInt(r.WriteIn))
	return err
}

func (q *Queries) DeleteResultsByState(ctx context.Context, state string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM results WHERE election_id LIKE ?`, statePattern(state))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListResults(ctx context.Context, electionID, contestSlug string) ([]models.Result, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, election_id, contest_slug, candidate_slug, reporting_level, jurisdiction,
			parent_jurisdiction, ocd_id, party, votes, votes_type, write_in
		FROM results WHERE election_id = ? AND contest_slug = ? ORDER BY id`,
		electionID, contestSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Result
	for rows.Next() {
		var r models.Result
		var level, votesType string
		var writeIn int64
		err := rows.Scan(&r.ID, &r.ElectionID, &r.ContestSlug, &r.CandidateSlug, &level, &r.Jurisdiction,
			&r.ParentJurisdiction, &r.OCDID, &r.Party, &r.Votes, &votesType, &writeIn)
		if err != nil {
			return nil, err
		}
		r.ReportingLevel = models.ReportingLevel(level)
		r.VotesType = models.VotesType(votesType)
		r.WriteIn = writeIn != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) CountResultsByLevel(ctx context.Context, electionID string, level models.ReportingLevel) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE election_id = ? AND reporting_level = ?`,
		electionID, string(level)).Scan(&n)
	return n, err
}

func (q *Queries) CountResultsByState(ctx context.Context, state string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE election_id LIKE ?`, statePattern(state)).Scan(&n)
	return n, err
}

// GetResultVotes resolves one result total by its full identity.
func (q *Queries) GetResultVotes(ctx context.Context, electionID, contestSlug, candidateSlug string, level models.ReportingLevel, jurisdiction string) (int64, error) {
	var votes int64
	err := q.db.QueryRowContext(ctx, `
		SELECT votes FROM results
		WHERE election_id = ? AND contest_slug = ? AND candidate_slug = ?
			AND reporting_level = ? AND jurisdiction = ? AND votes_type = ''`,
		electionID, contestSlug, candidateSlug, string(level), jurisdiction).Scan(&votes)
	return votes, err
}

// SumVotesByLevel adds up a candidate's grand-total results across every
// jurisdiction at one reporting level, the cross-level consistency
// check used by validators.
func (q *Queries) SumVotesByLevel(ctx context.Context, electionID, contestSlug, candidateSlug string, level models.ReportingLevel) (int64, error) {
	var votes sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(votes) FROM results
		WHERE election_id = ? AND contest_slug = ? AND candidate_slug = ?
			AND reporting_level = ? AND votes_type = ''`,
		electionID, contestSlug, candidateSlug, string(level)).Scan(&votes)
	return votes.Int64, err
}

func statePattern(state string) string {
	return state + "-%"
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func encodeJSONMapInt(m map[string]int64) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func encodeJSONMapString(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}
