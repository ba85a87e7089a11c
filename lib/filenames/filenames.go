// Package filenames generates the canonical filenames used for cached
// source artifacts and manifests. The grammar is:
//
//	(prefix "__")* YYYYMMDD "__" state ("__special")? ("__" party)?
//	"__" race_type ("__" jurisdiction)? ("__" office)? ("__" district)?
//	("__" reporting_level)? ("__" suffix)* "." ext
//
// For fixed inputs the output is deterministic, which is what makes
// re-runs of the fetch and load stages resumable.
package filenames

import (
	"errors"
	"fmt"
	"strings"

	"openelex-backend/lib/textutil"
)

var ErrInvalidDate = errors.New("date must look like YYYY, YYYYMM or YYYYMMDD")

const DefaultSeparator = "__"

type Options struct {
	Party          string
	Special        bool
	RaceType       string
	ReportingLevel string
	Jurisdiction   string
	Office         string
	OfficeDistrict string
	PrefixBits     []string
	SuffixBits     []string
	// Sep defaults to "__" when empty.
	Sep string
}

// Standardized returns the canonical filename for a source artifact.
// startDate accepts either YYYY-MM-DD or YYYYMMDD; ext should carry its
// leading dot. Only non-empty bits appear, always in the same order.
func Standardized(state, startDate, ext string, opts Options) string {
	sep := opts.Sep
	if sep == "" {
		sep = DefaultSeparator
	}

	var bits []string
	bits = append(bits, opts.PrefixBits...)
	bits = append(bits, strings.ReplaceAll(startDate, "-", ""), strings.ToLower(state))
	if opts.Special {
		bits = append(bits, "special")
	}
	if opts.Party != "" {
		bits = append(bits, textutil.Slugify(opts.Party, "_"))
	}
	if opts.RaceType != "" {
		bits = append(bits, strings.ReplaceAll(opts.RaceType, "-", "_"))
	}
	if opts.Jurisdiction != "" {
		bits = append(bits, textutil.Slugify(opts.Jurisdiction, "_"))
	}
	if opts.Office != "" {
		bits = append(bits, textutil.Slugify(opts.Office, "_"))
	}
	if opts.OfficeDistrict != "" {
		bits = append(bits, textutil.Slugify(opts.OfficeDistrict, "_"))
	}
	if opts.ReportingLevel != "" {
		bits = append(bits, textutil.Slugify(opts.ReportingLevel, "_"))
	}
	bits = append(bits, opts.SuffixBits...)

	return strings.Join(bits, sep) + ext
}

// Manifest returns the filename of the manifest listing the members
// extracted from an archive, using the same grammar with a "manifest"
// suffix bit and a .txt extension.
func Manifest(state, startDate string, opts Options) string {
	opts.SuffixBits = append(opts.SuffixBits, "manifest")
	return Standardized(state, startDate, ".txt", opts)
}

// FormatDate expands a date filter of the form YYYY, YYYYMM or YYYYMMDD
// into its dashed prefix form (2012, 2012-11, 2012-11-06). Any other
// shape reports ErrInvalidDate.
func FormatDate(datefilter string) (string, error) {
	for _, r := range datefilter {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, datefilter)
		}
	}
	switch len(datefilter) {
	case 4:
		return datefilter, nil
	case 6:
		return datefilter[:4] + "-" + datefilter[4:], nil
	case 8:
		return datefilter[:4] + "-" + datefilter[4:6] + "-" + datefilter[6:], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, datefilter)
}
