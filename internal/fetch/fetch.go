// Package fetch resolves mapping URLs to bytes in the state's cache
// directory. Fetches are idempotent: a cached filename is never
// re-downloaded unless the caller forces an overwrite.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"openelex-backend/lib/restyutil"
	"openelex-backend/internal/cache"
)

var tracer = otel.Tracer("openelex.fetch")

// ErrNotFound reports an HTTP 404 for a source URL. Batch runs log and
// skip it rather than aborting.
var ErrNotFound = errors.New("resource not found")

// TransportError is any non-404 HTTP failure for a source URL.
type TransportError struct {
	URL    string
	Status string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// Fetcher is the plain-file fetcher every state starts from.
type Fetcher struct {
	http  *resty.Client
	cache *cache.Cache
}

func New(c *cache.Cache) *Fetcher {
	http := resty.New()
	restyutil.Instrument(http, tracer, restyutil.FromEnv())
	return &Fetcher{
		http:  http,
		cache: c,
	}
}

func (f *Fetcher) Cache() *cache.Cache { return f.cache }

// Fetch downloads url into the cache under fname (or a URL-derived
// name when fname is empty). An already-cached target is a no-op
// unless overwrite is set. No partial file survives a failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, fname string, overwrite bool) error {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", rawURL), attribute.String("fname", fname))

	if fname == "" {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("unparseable source url %q: %w", rawURL, err)
		}
		fname = path.Base(parsed.Path)
	}

	if f.cache.Exists(fname) && !overwrite {
		slog.DebugContext(ctx, "already cached", "fname", fname)
		span.SetStatus(codes.Ok, "CACHE HIT")
		return nil
	}
	if err := f.cache.Ensure(); err != nil {
		return err
	}

	res, err := f.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if res.StatusCode() == 404 {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "error status")
		return &TransportError{URL: rawURL, Status: res.Status()}
	}

	target := f.cache.Abs(fname)
	staging := target + ".part"
	if err := os.WriteFile(staging, res.Body(), 0644); err != nil {
		os.Remove(staging)
		span.RecordError(err)
		return fmt.Errorf("write %s: %w", fname, err)
	}
	if err := os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return err
	}

	slog.InfoContext(ctx, "fetched", "fname", fname, "bytes", len(res.Body()))
	return nil
}
