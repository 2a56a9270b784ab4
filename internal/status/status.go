// Package status classifies free text into an operating status.
package status

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/placescraper/internal/places"
)

// Each rule is checked in order against lowercased text; the first hit wins.
// Ambiguous text resolves to Active.
var rules = []struct {
	pattern *regexp.Regexp
	status  places.Status
}{
	{regexp.MustCompile(`permanently closed|closed permanently|tutup permanen`), places.StatusPermanentlyClosed},
	{regexp.MustCompile(`temporarily closed|closed temporarily|tutup sementara`), places.StatusTemporarilyClosed},
	{regexp.MustCompile(`open now|\bopens\b|\bcloses\b|\bhours\b|\bjam\b|\bbuka\b`), places.StatusActive},
	{regexp.MustCompile(`\bclosed\b|\bditutup\b|\btutup\b`), places.StatusClosed},
	{regexp.MustCompile(`\bopen\b|\bbuka\b`), places.StatusActive},
}

// Classify maps text to a status using a fixed precedence: permanent closure,
// temporary closure, operating-hours information, plain closure, plain open.
// Text matching none of them is treated as Active.
func Classify(text string) places.Status {
	s, _ := Match(text)
	return s
}

// Match is Classify that also reports whether any rule matched.
func Match(text string) (places.Status, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.pattern.MatchString(lower) {
			return r.status, true
		}
	}
	return places.StatusActive, false
}

var hoursToken = regexp.MustCompile(`\b(open|opens|opened|close|closes|closed|buka|tutup|am|pm|wib|wita|wit)\b|\d(am|pm)\b`)

// MentionsHours reports whether text looks like an opening-hours or open/closed snippet.
func MentionsHours(text string) bool {
	return hoursToken.MatchString(strings.ToLower(text))
}
