package fetch

import (
	"context"
	"errors"
	"log/slog"

	"openelex-backend/internal/pipeline"
)

// Run executes the fetch stage for one state. Per-URL failures are
// logged and skipped; the batch proceeds.
func Run(ctx context.Context, pctx *pipeline.Context, state, datefilter string, overwrite bool) error {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if err := pipeline.ValidateDatefilter(datefilter); err != nil {
		return err
	}
	pack, err := pipeline.PackFor(state)
	if err != nil {
		return err
	}
	ds := pack.NewDatasource(pctx)
	fetcher := pack.NewFetcher(pctx)

	pairs, err := ds.FilenameURLPairs(ctx, 0)
	if err != nil {
		return err
	}

	var fetched, skipped int
	for _, pair := range pairs {
		if !pipeline.MatchesDatefilter(pair.Filename, datefilter) {
			continue
		}
		err := fetcher.Fetch(ctx, pair.URL, pair.Filename, overwrite)
		var transport *TransportError
		switch {
		case err == nil:
			fetched++
		case errors.Is(err, ErrNotFound), errors.As(err, &transport):
			slog.WarnContext(ctx, "skipping source", "fname", pair.Filename, "err", err)
			skipped++
		default:
			return err
		}
	}

	// states with out-of-band conversions also pull the original
	// unprocessed artifacts for audit
	if unprocessed, ok := ds.(pipeline.UnprocessedDatasource); ok {
		pairs, err := unprocessed.UnprocessedFilenameURLPairs(ctx, 0)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			if !pipeline.MatchesDatefilter(pair.Filename, datefilter) {
				continue
			}
			err := fetcher.Fetch(ctx, pair.URL, pair.Filename, overwrite)
			if err != nil {
				slog.WarnContext(ctx, "skipping unprocessed source", "fname", pair.Filename, "err", err)
				skipped++
				continue
			}
			fetched++
		}
	}

	slog.InfoContext(ctx, "fetch finished", "state", state, "fetched", fetched, "skipped", skipped)
	return nil
}
