package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"openelex-backend/lib/htmlutil"
	"openelex-backend/lib/textutil"
	"openelex-backend/internal/pipeline"
)

// PortalFetcher drives an HTML report-builder portal: it scrapes the
// form for its contest and county options, then issues one
// deterministic GET per (contest, county) pair with the fixed report
// options, delegating each to the plain fetch path.
type PortalFetcher struct {
	*Fetcher
	ds pipeline.Datasource

	// css selectors for the form's contest and county <select>s
	ContestSelect string
	CountySelect  string
	// fixed report options appended to every query
	ReportOptions url.Values
	// the endpoint the form submits to; resolved against the portal
	// URL when relative
	ReportPath string
}

func NewPortal(plain *Fetcher, ds pipeline.Datasource) *PortalFetcher {
	return &PortalFetcher{
		Fetcher:       plain,
		ds:            ds,
		ContestSelect: `select[name="contest"]`,
		CountySelect:  `select[name="county"]`,
		ReportOptions: url.Values{},
		ReportPath:    "report",
	}
}

func (f *PortalFetcher) Fetch(ctx context.Context, portalURL, fname string, overwrite bool) error {
	res, err := f.http.R().SetContext(ctx).Get(portalURL)
	if err != nil {
		return fmt.Errorf("fetch portal %s: %w", portalURL, err)
	}
	if res.IsError() {
		return &TransportError{URL: portalURL, Status: res.Status()}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("parse portal %s: %w", portalURL, err)
	}

	contests := htmlutil.SelectOptions(doc.Find(f.ContestSelect))
	counties := htmlutil.SelectOptions(doc.Find(f.CountySelect))
	if len(contests) == 0 || len(counties) == 0 {
		return fmt.Errorf("portal %s: form exposed %d contests and %d counties",
			portalURL, len(contests), len(counties))
	}

	base, err := url.Parse(portalURL)
	if err != nil {
		return err
	}
	endpoint, err := base.Parse(f.ReportPath)
	if err != nil {
		return err
	}

	// portal elections usually have no curated URL inventory, so each
	// report needs its own synthesized cache name. The portal suffix
	// comes off so result loaders recognize the reports.
	ext := path.Ext(fname)
	stem := strings.TrimSuffix(strings.TrimSuffix(fname, ext), "__portal")

	for _, contest := range contests {
		for _, county := range counties {
			query := url.Values{}
			for k, vs := range f.ReportOptions {
				for _, v := range vs {
					query.Add(k, v)
				}
			}
			query.Set("contest", contest)
			query.Set("county", county)

			report := *endpoint
			report.RawQuery = query.Encode()
			reportURL := report.String()

			target := fmt.Sprintf("%s__%s__%s%s",
				stem, textutil.Slugify(contest, "_"), textutil.Slugify(county, "_"), ext)
			mappings, err := f.ds.MappingsForURL(ctx, reportURL)
			if err == nil && len(mappings) > 0 && mappings[0].GeneratedFilename != "" {
				target = mappings[0].GeneratedFilename
			}

			err = f.Fetcher.Fetch(ctx, reportURL, target, overwrite)
			if err != nil {
				slog.WarnContext(ctx, "portal report fetch failed",
					"url", reportURL, "err", err)
			}
		}
	}
	return nil
}
