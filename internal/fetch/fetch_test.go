package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"openelex-backend/lib/testutil"
	"openelex-backend/internal/cache"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

func setupCache(t *testing.T) *cache.Cache {
	res, cleanup := testutil.SetupPipeline(t, testutil.PipelineParams{Name: "fetch"})
	t.Cleanup(cleanup)
	t.Cleanup(func() { res.DB.Close() })
	return cache.New(res.CacheRoot, "ia")
}

func TestFetchCachesAndSkips(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("county,votes\nAdair,100\n"))
	}))
	defer srv.Close()

	c := setupCache(t)
	f := New(c)
	ctx := context.Background()

	fname := "20061107__ia__general__adair__county.csv"
	require.NoError(t, f.Fetch(ctx, srv.URL+"/results.csv", fname, false))
	require.True(t, c.Exists(fname))
	require.Equal(t, 1, hits)

	// cached target is not refetched
	require.NoError(t, f.Fetch(ctx, srv.URL+"/results.csv", fname, false))
	require.Equal(t, 1, hits)

	// unless overwrite is forced
	require.NoError(t, f.Fetch(ctx, srv.URL+"/results.csv", fname, true))
	require.Equal(t, 2, hits)

	// no .part staging file left behind
	require.False(t, c.Exists(fname+".part"))
}

func TestFetchClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.csv":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := setupCache(t)
	f := New(c)
	ctx := context.Background()

	err := f.Fetch(ctx, srv.URL+"/missing.csv", "missing.csv", false)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, c.Exists("missing.csv"))

	err = f.Fetch(ctx, srv.URL+"/broken.csv", "broken.csv", false)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.False(t, c.Exists("broken.csv"))
}

// stubDatasource serves a fixed mapping list.
type stubDatasource struct {
	mappings []models.Mapping
}

func (s *stubDatasource) Elections(ctx context.Context, year int) (map[string][]models.Election, error) {
	return nil, nil
}
func (s *stubDatasource) Mappings(ctx context.Context, year int) ([]models.Mapping, error) {
	return s.mappings, nil
}
func (s *stubDatasource) TargetURLs(ctx context.Context, year int) ([]string, error) {
	return nil, nil
}
func (s *stubDatasource) FilenameURLPairs(ctx context.Context, year int) ([]pipeline.FilenamePair, error) {
	return nil, nil
}
func (s *stubDatasource) MappingForFile(ctx context.Context, filename string) (models.Mapping, error) {
	return models.Mapping{}, nil
}
func (s *stubDatasource) MappingsForURL(ctx context.Context, url string) ([]models.Mapping, error) {
	var out []models.Mapping
	for _, m := range s.mappings {
		if m.RawURL == url {
			out = append(out, m)
		}
	}
	return out, nil
}

func buildZip(t *testing.T, members map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZipFetcherExtractsMembersAndDropsArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"Adair.xls": "adair bytes",
		"Adams.xls": "adams bytes",
		"extra.txt": "ignored",
	})
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(archive)
	}))
	defer srv.Close()

	election := models.Election{
		Slug:      "ia-2006-11-07-general",
		StartDate: "2006-11-07",
		RaceType:  "general",
	}
	zipURL := srv.URL + "/precinct.zip"
	ds := &stubDatasource{mappings: []models.Mapping{
		{
			GeneratedFilename:    "20061107__ia__general__adair__precinct.xls",
			RawURL:               zipURL,
			RawExtractedFilename: "Adair.xls",
			Election:             election,
		},
		{
			GeneratedFilename:    "20061107__ia__general__adams__precinct.xls",
			RawURL:               zipURL,
			RawExtractedFilename: "Adams.xls",
			Election:             election,
		},
	}}

	c := setupCache(t)
	f := NewZip(New(c), ds)
	ctx := context.Background()

	require.NoError(t, f.Fetch(ctx, zipURL, "20061107__ia__general__adair__precinct.xls", false))

	// every member mapped to this archive is extracted in one pass
	body, err := os.ReadFile(c.Abs("20061107__ia__general__adair__precinct.xls"))
	require.NoError(t, err)
	require.Equal(t, "adair bytes", string(body))
	require.True(t, c.Exists("20061107__ia__general__adams__precinct.xls"))

	// the manifest lists the extracted filenames
	manifest, err := os.ReadFile(c.Abs("20061107__ia__general__manifest.txt"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), "20061107__ia__general__adair__precinct.xls")

	// the archive itself is not kept
	names, err := c.List("")
	require.NoError(t, err)
	for _, name := range names {
		require.NotContains(t, name, ".zip")
	}

	// the second mapping's pair is a no-op, not a refetch
	require.NoError(t, f.Fetch(ctx, zipURL, "20061107__ia__general__adams__precinct.xls", false))
	require.Equal(t, 1, hits)
}

func TestZipFetcherNestedArchive(t *testing.T) {
	inner := buildZip(t, map[string]string{"Polk.xls": "polk bytes"})
	outer := buildZip(t, map[string]string{"counties.zip": string(inner)})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(outer)
	}))
	defer srv.Close()

	zipURL := srv.URL + "/nested.zip"
	ds := &stubDatasource{mappings: []models.Mapping{{
		GeneratedFilename:    "20061107__ia__general__polk__precinct.xls",
		RawURL:               zipURL,
		RawExtractedFilename: "Polk.xls",
		ParentZipfile:        "counties.zip",
		Election: models.Election{
			Slug:      "ia-2006-11-07-general",
			StartDate: "2006-11-07",
			RaceType:  "general",
		},
	}}}

	c := setupCache(t)
	f := NewZip(New(c), ds)
	require.NoError(t, f.Fetch(context.Background(), zipURL, "20061107__ia__general__polk__precinct.xls", false))

	body, err := os.ReadFile(c.Abs("20061107__ia__general__polk__precinct.xls"))
	require.NoError(t, err)
	require.Equal(t, "polk bytes", string(body))
}

func TestZipFetcherUnclaimedArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{"a.xls": "x"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	c := setupCache(t)
	f := NewZip(New(c), &stubDatasource{})
	err := f.Fetch(context.Background(), srv.URL+"/orphan.zip", "", false)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
