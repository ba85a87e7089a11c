package ia

import (
	"openelex-backend/internal/fetch"
	"openelex-backend/internal/load"
	"openelex-backend/internal/pipeline"
)

func init() {
	pipeline.RegisterPack(pipeline.Pack{
		State:         "ia",
		NewDatasource: NewDatasource,
		NewFetcher: func(pctx *pipeline.Context) pipeline.Fetcher {
			return fetch.NewZip(fetch.New(pctx.CacheFor("ia")), NewDatasource(pctx))
		},
		Loaders: []pipeline.LoaderEntry{
			{
				Name:  "ia_preprocessed_csv",
				Match: load.IsPreprocessedCSV,
				New:   loaderWithIndex(load.NewPreprocessedCSV),
			},
			{
				Name:  "ia_precinct_xls",
				Match: IsPrecinctXLS,
				New:   loaderWithIndex(NewPrecinctXLS),
			},
			{
				Name:  "ia_county_xls",
				Match: IsCountyXLS,
				New:   loaderWithIndex(NewCountyXLS),
			},
			{
				Name:  "ia_precinct_xlsx",
				Match: IsPrecinctXLSX,
				New:   loaderWithIndex(NewPrecinctXLSX),
			},
		},
	})
	registerTransforms()
}

type loaderCtor func(ds pipeline.Datasource, ix *load.JurisdictionIndex) func(pctx *pipeline.Context) pipeline.Loader

func loaderWithIndex(ctor loaderCtor) func(pctx *pipeline.Context) (pipeline.Loader, error) {
	return func(pctx *pipeline.Context) (pipeline.Loader, error) {
		ds := NewDatasource(pctx)
		rows, err := ds.(*Datasource).Jurisdictions()
		if err != nil {
			return nil, err
		}
		return ctor(ds, load.NewJurisdictionIndex("ia", rows))(pctx), nil
	}
}
