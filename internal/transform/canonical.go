package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/polera/gonameparts"

	"openelex-backend/internal/datastore"
	"openelex-backend/internal/fixtures"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// Rules captures the per-state vocabulary the canonical transforms are
// parameterized by: office spellings, which offices carry districts,
// and party abbreviations.
type Rules struct {
	// OfficeNames maps raw office spellings to canonical names. Lookup
	// is case-insensitive; unmapped offices pass through unchanged.
	OfficeNames map[string]string
	// DistrictOffices names the canonical offices whose contests are
	// district-scoped. Districts reported for any other office are
	// source noise and are dropped.
	DistrictOffices map[string]bool
	// PartyAbbrevs maps raw party strings to canonical abbreviations.
	PartyAbbrevs map[string]string
	// StrictParties makes an unmapped party an error instead of the
	// "UN" placeholder.
	StrictParties bool
	// AggregateNames are candidate strings that stand for a pool of
	// individuals rather than one person, matched case-insensitively.
	AggregateNames []string
}

// Office resolves a raw office spelling to its canonical name.
func (r Rules) Office(raw string) string {
	raw = strings.TrimSpace(raw)
	for from, to := range r.OfficeNames {
		if strings.EqualFold(from, raw) {
			return to
		}
	}
	return raw
}

// District normalizes a raw district for a canonical office: dropped
// entirely for statewide offices, leading zeros stripped otherwise.
func (r Rules) District(office, raw string) string {
	if !r.DistrictOffices[office] {
		return ""
	}
	raw = strings.TrimSpace(raw)
	trimmed := strings.TrimLeft(raw, "0")
	if trimmed == "" && raw != "" {
		return "0"
	}
	return trimmed
}

// Party resolves a raw party string to its canonical abbreviation.
func (r Rules) Party(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for from, to := range r.PartyAbbrevs {
		if strings.EqualFold(from, raw) {
			return to, nil
		}
	}
	if r.StrictParties {
		return "", fmt.Errorf("unknown party %q", raw)
	}
	return "UN", nil
}

// IsAggregate reports whether a candidate name stands for a pool.
func (r Rules) IsAggregate(fullName string) bool {
	for _, name := range r.AggregateNames {
		if strings.EqualFold(name, strings.TrimSpace(fullName)) {
			return true
		}
	}
	return false
}

func (r Rules) contestSlug(office, district, primaryParty string) string {
	canonical := r.Office(office)
	return models.ContestSlug(canonical, r.District(canonical, district), primaryParty)
}

// RegisterCanonical registers the standard three-step sequence for a
// state: unique contests, unique candidates, then results. Validators
// attach to the results step, the last one to run.
func RegisterCanonical(state string, rules Rules, validators ...Validator) {
	Register(state, Transform{
		Name:        "create_unique_contests",
		Run:         createContests(rules),
		Reverse:     reverseContests,
		AutoReverse: true,
	})
	Register(state, Transform{
		Name:        "create_unique_candidates",
		Run:         createCandidates(rules),
		Reverse:     reverseCandidates,
		AutoReverse: true,
	})
	Register(state, Transform{
		Name:        "create_unique_results",
		Run:         createResults(rules),
		Reverse:     reverseResults,
		AutoReverse: true,
		Validators:  validators,
	})
}

func createContests(rules Rules) Func {
	return func(ctx context.Context, pctx *pipeline.Context, state string) error {
		tuples, err := pctx.Queries.DistinctContests(ctx, state)
		if err != nil {
			return err
		}
		offices, err := fixtures.OfficeIndex(pctx.Root)
		if err != nil {
			return err
		}
		tx, err := pctx.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		qtx := pctx.Queries.WithTx(tx)

		seen := map[string]bool{}
		created := 0
		for _, t := range tuples {
			office := rules.Office(t.Office)
			ref, ok := offices[strings.ToLower(office)]
			if !ok {
				return fmt.Errorf("office %q is not in the reference fixture (closest: %q)",
					office, closestOffice(offices, office))
			}
			district := rules.District(office, t.District)
			// the fixture is the authority on which offices are
			// district-scoped
			if ref.District == "" {
				district = ""
			}
			slug := models.ContestSlug(office, district, t.PrimaryParty)
			key := t.ElectionID + "|" + slug
			if seen[key] {
				continue
			}
			seen[key] = true
			err := qtx.CreateContest(ctx, models.Contest{
				ElectionID:   t.ElectionID,
				State:        t.State,
				StartDate:    t.StartDate,
				EndDate:      t.EndDate,
				ElectionType: t.ElectionType,
				PrimaryType:  t.PrimaryType,
				Special:      t.Special,
				Office:       office,
				District:     district,
				PrimaryParty: t.PrimaryParty,
				Slug:         slug,
			})
			if err != nil {
				return fmt.Errorf("contest %s: %w", key, err)
			}
			created++
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		pctx.Log.Info("created contests", "state", state, "count", created)
		return nil
	}
}

func closestOffice(offices map[string]models.Office, name string) string {
	best := ""
	bestDist := -1
	for _, o := range offices {
		d := matchr.Levenshtein(strings.ToLower(name), strings.ToLower(o.Name))
		if bestDist < 0 || d < bestDist {
			best = o.Name
			bestDist = d
		}
	}
	return best
}

func reverseContests(ctx context.Context, pctx *pipeline.Context, state string) error {
	n, err := pctx.Queries.DeleteContestsByState(ctx, state)
	if err != nil {
		return err
	}
	pctx.Log.Info("deleted contests", "state", state, "count", n)
	return nil
}

func createCandidates(rules Rules) Func {
	return func(ctx context.Context, pctx *pipeline.Context, state string) error {
		tuples, err := pctx.Queries.DistinctCandidates(ctx, state)
		if err != nil {
			return err
		}
		tx, err := pctx.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		qtx := pctx.Queries.WithTx(tx)

		seen := map[string]bool{}
		created := 0
		for _, t := range tuples {
			if t.FullName == "" && t.FamilyName == "" {
				continue
			}
			contestSlug := rules.contestSlug(t.Office, t.District, t.PrimaryParty)
			candidate := buildCandidate(rules, t)
			candidate.ElectionID = t.ElectionID
			candidate.ContestSlug = contestSlug
			key := t.ElectionID + "|" + contestSlug + "|" + candidate.Slug
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := qtx.CreateCandidate(ctx, candidate); err != nil {
				return fmt.Errorf("candidate %s: %w", key, err)
			}
			created++
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		pctx.Log.Info("created candidates", "state", state, "count", created)
		return nil
	}
}

// buildCandidate fills the name fields from whatever the source
// provided: split names pass through, combined names are parsed.
func buildCandidate(rules Rules, t datastore.CandidateTuple) models.Candidate {
	c := models.Candidate{
		FullName:   t.FullName,
		GivenName:  t.GivenName,
		FamilyName: t.FamilyName,
		MiddleName: t.MiddleName,
		Suffix:     t.Suffix,
	}
	if c.FullName == "" {
		c.FullName = joinName(t.GivenName, t.MiddleName, t.FamilyName, t.Suffix)
	}
	if rules.IsAggregate(c.FullName) {
		c.Aggregate = true
		c.GivenName, c.MiddleName, c.FamilyName, c.Suffix = "", "", "", ""
	} else if c.FamilyName == "" {
		parsed := gonameparts.Parse(c.FullName)
		c.GivenName = parsed.FirstName
		c.MiddleName = parsed.MiddleName
		c.FamilyName = parsed.LastName
		if parsed.Suffix != "" {
			c.Suffix = parsed.Suffix
		} else {
			c.Suffix = parsed.Generation
		}
	}
	c.Slug = models.CandidateSlug(c.FullName)
	return c
}

func joinName(bits ...string) string {
	kept := bits[:0]
	for _, bit := range bits {
		if bit != "" {
			kept = append(kept, bit)
		}
	}
	return strings.Join(kept, " ")
}

func reverseCandidates(ctx context.Context, pctx *pipeline.Context, state string) error {
	n, err := pctx.Queries.DeleteCandidatesByState(ctx, state)
	if err != nil {
		return err
	}
	pctx.Log.Info("deleted candidates", "state", state, "count", n)
	return nil
}

func createResults(rules Rules) Func {
	return func(ctx context.Context, pctx *pipeline.Context, state string) error {
		raws, err := pctx.Queries.ListRawResultsByState(ctx, state)
		if err != nil {
			return err
		}
		parties, err := fixtures.PartyIndex(pctx.Root)
		if err != nil {
			return err
		}
		inserter := datastore.NewResultInserter(pctx.DB, datastore.DefaultBulkSize)
		skippedNull := 0
		for _, raw := range raws {
			if !raw.Votes.Valid {
				skippedNull++
				continue
			}
			party, err := rules.Party(raw.Party)
			if err != nil {
				return fmt.Errorf("source %s: %w", raw.Source, err)
			}
			if _, ok := parties[strings.ToUpper(party)]; party != "" && !ok {
				return fmt.Errorf("source %s: party abbreviation %q is not in the reference fixture",
					raw.Source, party)
			}
			fullName := raw.FullName
			if fullName == "" {
				fullName = joinName(raw.GivenName, raw.MiddleName, raw.FamilyName, raw.Suffix)
			}
			result := models.Result{
				ElectionID:         raw.ElectionID,
				ContestSlug:        rules.contestSlug(raw.Office, raw.District, raw.PrimaryParty),
				CandidateSlug:      models.CandidateSlug(fullName),
				ReportingLevel:     raw.ReportingLevel,
				Jurisdiction:       raw.Jurisdiction,
				ParentJurisdiction: raw.ParentJurisdiction,
				OCDID:              raw.OCDID,
				Party:              party,
				Votes:              raw.Votes.Int64,
				VotesType:          raw.VotesType,
				WriteIn:            raw.WriteIn || rules.IsAggregate(fullName),
			}
			if err := inserter.Append(ctx, result); err != nil {
				return err
			}
		}
		if err := inserter.Flush(ctx); err != nil {
			return err
		}
		pctx.Log.Info("created results",
			"state", state, "count", inserter.Count(), "skipped_null_votes", skippedNull)
		return nil
	}
}

func reverseResults(ctx context.Context, pctx *pipeline.Context, state string) error {
	n, err := pctx.Queries.DeleteResultsByState(ctx, state)
	if err != nil {
		return err
	}
	pctx.Log.Info("deleted results", "state", state, "count", n)
	return nil
}
