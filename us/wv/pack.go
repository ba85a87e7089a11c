package wv

import (
	"context"
	"net/url"
	"strings"

	"openelex-backend/internal/fetch"
	"openelex-backend/internal/load"
	"openelex-backend/internal/pipeline"
)

func init() {
	pipeline.RegisterPack(pipeline.Pack{
		State:         "wv",
		NewDatasource: NewDatasource,
		NewFetcher:    newFetcher,
		Loaders: []pipeline.LoaderEntry{
			{
				Name:  "wv_preprocessed_csv",
				Match: load.IsPreprocessedCSV,
				New:   loaderWithIndex(load.NewPreprocessedCSV),
			},
			{
				Name:  "wv_results_xml",
				Match: IsResultsXML,
				New:   loaderWithIndex(NewResultsXML),
			},
			{
				Name:  "wv_results_html",
				Match: IsResultsHTML,
				New:   loaderWithIndex(NewResultsHTML),
			},
		},
	})
	registerTransforms()
}

func newFetcher(pctx *pipeline.Context) pipeline.Fetcher {
	ds := NewDatasource(pctx)
	plain := fetch.New(pctx.CacheFor("wv"))
	portal := fetch.NewPortal(plain, ds)
	portal.ReportOptions = url.Values{"format": {"html"}}
	return &switchingFetcher{plain: plain, portal: portal}
}

// switchingFetcher routes portal pages to the portal driver and
// everything else to the plain path.
type switchingFetcher struct {
	plain  *fetch.Fetcher
	portal *fetch.PortalFetcher
}

func (f *switchingFetcher) Fetch(ctx context.Context, rawURL, fname string, overwrite bool) error {
	if strings.Contains(fname, "__portal") {
		return f.portal.Fetch(ctx, rawURL, fname, overwrite)
	}
	return f.plain.Fetch(ctx, rawURL, fname, overwrite)
}

type loaderCtor func(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader

func loaderWithIndex(ctor loaderCtor) func(pctx *pipeline.Context) (pipeline.Loader, error) {
	return func(pctx *pipeline.Context) (pipeline.Loader, error) {
		ds := NewDatasource(pctx)
		rows, err := ds.(*Datasource).Jurisdictions()
		if err != nil {
			return nil, err
		}
		return ctor(ds, load.NewJurisdictionIndex("wv", rows))(pctx), nil
	}
}
