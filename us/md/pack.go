package md

import (
	"openelex-backend/internal/fetch"
	"openelex-backend/internal/load"
	"openelex-backend/internal/pipeline"
)

func init() {
	pipeline.RegisterPack(pipeline.Pack{
		State:         "md",
		NewDatasource: NewDatasource,
		NewFetcher: func(pctx *pipeline.Context) pipeline.Fetcher {
			return fetch.New(pctx.CacheFor("md"))
		},
		Loaders: []pipeline.LoaderEntry{
			{
				Name:  "md_preprocessed_csv",
				Match: load.IsPreprocessedCSV,
				New:   newPreprocessedLoader,
			},
			{
				Name:  "md_results_csv",
				Match: IsResultsCSV,
				New:   newResultsLoader,
			},
		},
	})
	registerTransforms()
}

// loader constructors resolve the jurisdiction fixture lazily, at the
// first load, because pipeline.Context is not available at init.
func newPreprocessedLoader(pctx *pipeline.Context) (pipeline.Loader, error) {
	ds := NewDatasource(pctx)
	ix, err := jurisdictionIndex(ds)
	if err != nil {
		return nil, err
	}
	return load.NewPreprocessedCSV(ds, ix)(pctx), nil
}

func newResultsLoader(pctx *pipeline.Context) (pipeline.Loader, error) {
	ds := NewDatasource(pctx)
	ix, err := jurisdictionIndex(ds)
	if err != nil {
		return nil, err
	}
	return NewResultsCSV(ds, ix)(pctx), nil
}

func jurisdictionIndex(ds pipeline.Datasource) (*load.JurisdictionIndex, error) {
	rows, err := ds.(*Datasource).Jurisdictions()
	if err != nil {
		return nil, err
	}
	return load.NewJurisdictionIndex("md", rows), nil
}
