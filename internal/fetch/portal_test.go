package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"openelex-backend/internal/models"
)

const portalForm = `<html><body><form action="report">
<select name="contest">
<option value="Governor">Governor</option>
<option value="Secretary of State">Secretary of State</option>
</select>
<select name="county">
<option value="Kanawha">Kanawha</option>
<option value="Boone">Boone</option>
</select>
</form></body></html>`

func portalServer(t *testing.T, reports map[string]int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/portal.html":
			w.Write([]byte(portalForm))
		case "/report":
			key := r.URL.Query().Get("contest") + "/" + r.URL.Query().Get("county")
			reports[key]++
			fmt.Fprintf(w, "<html><body>%s</body></html>", key)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPortalFetchesEveryReport(t *testing.T) {
	reports := map[string]int{}
	srv := portalServer(t, reports)

	c := setupCache(t)
	f := NewPortal(New(c), &stubDatasource{})
	f.ReportOptions = url.Values{"format": {"html"}}
	ctx := context.Background()

	fname := "20110514__wv__special__general__portal.html"
	require.NoError(t, f.Fetch(ctx, srv.URL+"/portal.html", fname, false))

	// one report per (contest, county) pair
	require.Len(t, reports, 4)
	require.Equal(t, 1, reports["Governor/Kanawha"])
	require.Equal(t, 1, reports["Secretary of State/Boone"])

	// each pair gets its own cache file, named so result loaders pick
	// it up
	for _, name := range []string{
		"20110514__wv__special__general__governor__kanawha.html",
		"20110514__wv__special__general__governor__boone.html",
		"20110514__wv__special__general__secretary_of_state__kanawha.html",
		"20110514__wv__special__general__secretary_of_state__boone.html",
	} {
		require.True(t, c.Exists(name), name)
	}

	body, err := os.ReadFile(c.Abs("20110514__wv__special__general__governor__boone.html"))
	require.NoError(t, err)
	require.Contains(t, string(body), "Governor/Boone")

	// cached reports are not refetched
	require.NoError(t, f.Fetch(ctx, srv.URL+"/portal.html", fname, false))
	require.Equal(t, 1, reports["Governor/Kanawha"])
}

func TestPortalPrefersMappedFilenames(t *testing.T) {
	reports := map[string]int{}
	srv := portalServer(t, reports)

	query := url.Values{"contest": {"Governor"}, "county": {"Kanawha"}, "format": {"html"}}
	mapped := "20110514__wv__special__general__governor__kanawha__county.html"
	ds := &stubDatasource{mappings: []models.Mapping{{
		GeneratedFilename: mapped,
		RawURL:            srv.URL + "/report?" + query.Encode(),
	}}}

	c := setupCache(t)
	f := NewPortal(New(c), ds)
	f.ReportOptions = url.Values{"format": {"html"}}

	require.NoError(t, f.Fetch(context.Background(), srv.URL+"/portal.html",
		"20110514__wv__special__general__portal.html", false))

	require.True(t, c.Exists(mapped))
	require.False(t, c.Exists("20110514__wv__special__general__governor__kanawha.html"))
}
