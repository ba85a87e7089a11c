package textutil

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\w\s-]`)
	ocdDisallowed   = regexp.MustCompile(`[^a-zA-Z0-9.~_-]`)
)

// Slugify lowercases a human-readable string, strips punctuation and
// collapses runs of whitespace into substitute. An empty substitute
// defaults to "_".
func Slugify(s string, substitute string) string {
	if substitute == "" {
		substitute = "_"
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, substitute)
	return s
}

// OCDTypeID converts a name into the type-id segment of an OCD division
// identifier: whitespace becomes "_", any other disallowed character
// becomes "~", leading zeros are stripped unless suppressed. Idempotent.
func OCDTypeID(s string, stripLeadingZeros bool) string {
	s = whitespaceRegex.ReplaceAllString(s, "_")
	s = ocdDisallowed.ReplaceAllString(s, "~")
	if stripLeadingZeros {
		s = strings.TrimLeft(s, "0")
	}
	return strings.ToLower(s)
}

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
