package pipeline

import (
	"strings"

	"openelex-backend/lib/filenames"
)

// ValidateDatefilter rejects anything that is not empty or a
// YYYY/YYYYMM/YYYYMMDD prefix. A bad filter is fatal for the invoked
// stage, so callers surface the error rather than skipping.
func ValidateDatefilter(datefilter string) error {
	if datefilter == "" {
		return nil
	}
	_, err := filenames.FormatDate(datefilter)
	return err
}

// MatchesDatefilter reports whether a generated filename (which always
// begins with YYYYMMDD) falls inside the filter.
func MatchesDatefilter(generatedFilename, datefilter string) bool {
	if datefilter == "" {
		return true
	}
	return strings.HasPrefix(generatedFilename, datefilter)
}

// MatchesYear reports whether an election start date (YYYY-MM-DD)
// falls in year; year 0 matches everything.
func MatchesYear(startDate string, year int) bool {
	if year == 0 {
		return true
	}
	if len(startDate) < 4 {
		return false
	}
	return startDate[:4] == itoa4(year)
}

func itoa4(year int) string {
	digits := [4]byte{}
	for i := 3; i >= 0; i-- {
		digits[i] = byte('0' + year%10)
		year /= 10
	}
	return string(digits[:])
}
