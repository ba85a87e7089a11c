package datastore

// Schema creates the result store. The UNIQUE indexes encode the
// pipeline's identity rules: one contest per (election, slug), one
// candidate per (election, contest, slug), one result per (election,
// contest, candidate, level, jurisdiction, votes type). raw_results has
// no uniqueness beyond rowid: it is append-only per source file and
// cleared wholesale by source before a reload.
const Schema = `
CREATE TABLE IF NOT EXISTS raw_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created TEXT NOT NULL,
	updated TEXT NOT NULL,
	source TEXT NOT NULL,
	election_id TEXT NOT NULL,
	state TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	election_type TEXT NOT NULL DEFAULT '',
	primary_type TEXT NOT NULL DEFAULT '',
	result_type TEXT NOT NULL DEFAULT '',
	special INTEGER NOT NULL DEFAULT 0,
	office TEXT NOT NULL DEFAULT '',
	district TEXT NOT NULL DEFAULT '',
	primary_party TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	given_name TEXT NOT NULL DEFAULT '',
	family_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	suffix TEXT NOT NULL DEFAULT '',
	party TEXT NOT NULL DEFAULT '',
	write_in INTEGER NOT NULL DEFAULT 0,
	reporting_level TEXT NOT NULL,
	jurisdiction TEXT NOT NULL DEFAULT '',
	parent_jurisdiction TEXT NOT NULL DEFAULT '',
	ocd_id TEXT NOT NULL DEFAULT '',
	votes INTEGER,
	votes_type TEXT NOT NULL DEFAULT '',
	vote_breakdowns TEXT NOT NULL DEFAULT '{}',
	extras TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS raw_results_source ON raw_results (source);
CREATE INDEX IF NOT EXISTS raw_results_election ON raw_results (election_id);

CREATE TABLE IF NOT EXISTS contests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	election_id TEXT NOT NULL,
	state TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	election_type TEXT NOT NULL DEFAULT '',
	primary_type TEXT NOT NULL DEFAULT '',
	special INTEGER NOT NULL DEFAULT 0,
	office TEXT NOT NULL,
	district TEXT NOT NULL DEFAULT '',
	primary_party TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL,
	UNIQUE (election_id, slug)
);

CREATE TABLE IF NOT EXISTS candidates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	election_id TEXT NOT NULL,
	contest_slug TEXT NOT NULL,
	full_name TEXT NOT NULL,
	given_name TEXT NOT NULL DEFAULT '',
	family_name TEXT NOT NULL DEFAULT '',
	middle_name TEXT NOT NULL DEFAULT '',
	suffix TEXT NOT NULL DEFAULT '',
	aggregate INTEGER NOT NULL DEFAULT 0,
	slug TEXT NOT NULL,
	UNIQUE (election_id, contest_slug, slug)
);

CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	election_id TEXT NOT NULL,
	contest_slug TEXT NOT NULL,
	candidate_slug TEXT NOT NULL,
	reporting_level TEXT NOT NULL,
	jurisdiction TEXT NOT NULL DEFAULT '',
	parent_jurisdiction TEXT NOT NULL DEFAULT '',
	ocd_id TEXT NOT NULL DEFAULT '',
	party TEXT NOT NULL DEFAULT '',
	votes INTEGER NOT NULL DEFAULT 0,
	votes_type TEXT NOT NULL DEFAULT '',
	write_in INTEGER NOT NULL DEFAULT 0,
	UNIQUE (election_id, contest_slug, candidate_slug, reporting_level, jurisdiction, votes_type)
);
`
