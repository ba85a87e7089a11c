// Package validate runs the validators states attach to their
// transforms and renders a pass/fail summary. Validators are ordinary
// checks against the canonical tables, usually backed by hand-audited
// count fixtures.
package validate

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"openelex-backend/internal/fixtures"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
	"openelex-backend/internal/transform"
)

// Outcome is one validator's result.
type Outcome struct {
	Transform string
	Name      string
	Err       error
}

// Run executes every validator attached to a state's transforms, in
// registration order. A failing validator is an Outcome, not an error;
// the returned error covers only runner-level problems.
func Run(ctx context.Context, pctx *pipeline.Context, state string) ([]Outcome, error) {
	transforms := transform.ForState(state)
	if len(transforms) == 0 {
		return nil, fmt.Errorf("no transforms registered for state %q", state)
	}
	var outcomes []Outcome
	for _, t := range transforms {
		for _, v := range t.Validators {
			outcomes = append(outcomes, Outcome{
				Transform: t.Name,
				Name:      v.Name,
				Err:       v.Run(ctx, pctx, state),
			})
		}
	}
	return outcomes, nil
}

// Failed counts the outcomes that did not pass.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Summary renders the outcomes as a table.
func Summary(w io.Writer, outcomes []Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Transform", "Validator", "Status", "Detail"})
	for _, o := range outcomes {
		status := text.FgGreen.Sprint("PASS")
		detail := ""
		if o.Err != nil {
			status = text.FgRed.Sprint("FAIL")
			detail = o.Err.Error()
		}
		t.AppendRow(table.Row{o.Transform, o.Name, status, detail})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d", len(outcomes)-Failed(outcomes), len(outcomes)), "passed"})
	t.Render()
}

// CandidateCountsMatch checks every row of an election's hand-audited
// counts fixture against the results table.
func CandidateCountsMatch(startDate, raceType string) transform.Validator {
	return transform.Validator{
		Name: fmt.Sprintf("candidate_counts_%s_%s", startDate, raceType),
		Run: func(ctx context.Context, pctx *pipeline.Context, state string) error {
			counts, err := fixtures.CandidateCounts(pctx.Root, state, startDate, raceType)
			if err != nil {
				return err
			}
			electionID := models.ElectionSlug(state, dashDate(startDate), raceType, false)
			for _, want := range counts {
				got, err := pctx.Queries.GetResultVotes(ctx,
					electionID, want.ContestSlug, want.CandidateSlug,
					models.ReportingLevel(want.ReportingLevel), want.Jurisdiction)
				if err != nil {
					return fmt.Errorf("%s %s/%s at %s %q: %w",
						electionID, want.ContestSlug, want.CandidateSlug,
						want.ReportingLevel, want.Jurisdiction, err)
				}
				if got != want.Votes {
					return fmt.Errorf("%s %s/%s at %s %q: got %d votes, want %d",
						electionID, want.ContestSlug, want.CandidateSlug,
						want.ReportingLevel, want.Jurisdiction, got, want.Votes)
				}
			}
			return nil
		},
	}
}

// ResultCountAtLevel checks how many result rows one contest produced
// at a reporting level.
func ResultCountAtLevel(electionID, contestSlug string, level models.ReportingLevel, want int) transform.Validator {
	return transform.Validator{
		Name: fmt.Sprintf("result_count_%s_%s", contestSlug, level),
		Run: func(ctx context.Context, pctx *pipeline.Context, state string) error {
			results, err := pctx.Queries.ListResults(ctx, electionID, contestSlug)
			if err != nil {
				return err
			}
			got := 0
			for _, r := range results {
				if r.ReportingLevel == level {
					got++
				}
			}
			if got != want {
				return fmt.Errorf("%s %s at %s: got %d results, want %d",
					electionID, contestSlug, level, got, want)
			}
			return nil
		},
	}
}

// LevelsConsistent checks that a candidate's grand totals summed over
// one reporting level equal the sum over another.
func LevelsConsistent(electionID, contestSlug, candidateSlug string, a, b models.ReportingLevel) transform.Validator {
	return transform.Validator{
		Name: fmt.Sprintf("levels_consistent_%s_%s_vs_%s", candidateSlug, a, b),
		Run: func(ctx context.Context, pctx *pipeline.Context, state string) error {
			sumA, err := pctx.Queries.SumVotesByLevel(ctx, electionID, contestSlug, candidateSlug, a)
			if err != nil {
				return err
			}
			sumB, err := pctx.Queries.SumVotesByLevel(ctx, electionID, contestSlug, candidateSlug, b)
			if err != nil {
				return err
			}
			if sumA != sumB {
				return fmt.Errorf("%s %s/%s: %s sums to %d but %s sums to %d",
					electionID, contestSlug, candidateSlug, a, sumA, b, sumB)
			}
			return nil
		},
	}
}

// dashDate converts YYYYMMDD to YYYY-MM-DD for election slugs.
func dashDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:]
}
