package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/status"
)

// NoReviews is the rating value recorded for places without any reviews.
const NoReviews = "No reviews"

const (
	minNameLen     = 3
	minCategoryLen = 3
	maxCategoryLen = 50
	minContactLen  = 8
	minPhoneDigits = 6
	maxHoursParts  = 2
)

// Labels of UI controls that sometimes leak into the accessible name of a card.
var nameDenylist = map[string]struct{}{
	"":             {},
	"foto & video": {},
	"foto":         {},
	"video":        {},
	"photos":       {},
	"reviews":      {},
	"ulasan":       {},
	"menu":         {},
	"about":        {},
	"tentang":      {},
	"overview":     {},
	"ringkasan":    {},
}

var (
	addressKeyword = regexp.MustCompile(`(?i)\b(jl|jln|jalan|gg|gang|street|road|avenue|blok|block|kec|kel|kecamatan|kelurahan|komplek|perum)\b|\bno\.?\s*\d|\b(rt|rw)\.?\s*\d|\b(rt|rw)\.`)
	decimal        = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	clockTime      = regexp.MustCompile(`\d{1,2}[:.\-]\d{2}`)
	noReviews      = regexp.MustCompile(`(?i)no reviews|belum ada ulasan`)
	ratingLabel    = regexp.MustCompile(`(?i)star|bintang`)
	reviewCount    = regexp.MustCompile(`^\(\s*\d[\d.,\s]*\)$`) // "(1,234)"
)

// phoneLead lists characters a phone number may start with: '+', a trunk
// prefix '0', a parenthesised area code, or the country/mobile digits '6' and '8'.
const phoneLead = "+0(68"

func found(value, source string) places.Field { return places.Found(value, source) }

func toField(o Outcome[string]) places.Field {
	if !o.Found {
		return places.Missing()
	}
	return found(o.Value, o.Source)
}

func firstText(scope places.Node, selector string) (string, bool) {
	if scope == nil || selector == "" {
		return "", false
	}
	for _, n := range scope.Find(selector) {
		if t := places.CleanText(n.Text()); t != "" {
			return t, true
		}
	}
	return "", false
}

func firstAttr(scope places.Node, selector, attr string) (string, bool) {
	if scope == nil || selector == "" {
		return "", false
	}
	for _, n := range scope.Find(selector) {
		if v, ok := n.Attr(attr); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Leaves returns the cleaned text of every element matching selector that has
// no matching descendant, in document order. Separator glyphs at either end
// are trimmed and empty texts skipped.
func Leaves(scope places.Node, selector string) []string {
	if scope == nil || selector == "" {
		return nil
	}
	var out []string
	for _, n := range scope.Find(selector) {
		if len(n.Find(selector)) > 0 {
			continue
		}
		t := strings.Trim(places.CleanText(n.Text()), "·⋅• ")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ValidName rejects UI labels and strings too short to be a place name.
func ValidName(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < minNameLen {
		return false
	}
	_, denied := nameDenylist[strings.ToLower(s)]
	return !denied
}

// labelName takes the leading segment of an accessible label such as "Name · Category".
func labelName(label string) (string, bool) {
	name, _, _ := strings.Cut(label, "·")
	name = places.CleanText(name)
	return name, ValidName(name)
}

// ValidCategory reports whether s reads like a category label rather than an
// address, rating, or other card metadata.
func ValidCategory(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minCategoryLen || n > maxCategoryLen {
		return false
	}
	if strings.ContainsFunc(s, unicode.IsDigit) || addressKeyword.MatchString(s) {
		return false
	}
	for _, c := range "+()-/" {
		if strings.Count(s, string(c)) > 1 {
			return false
		}
	}
	if _, denied := nameDenylist[strings.ToLower(s)]; denied {
		return false
	}
	if _, ok := status.Match(s); ok || status.MentionsHours(s) || noReviews.MatchString(s) {
		return false
	}
	return true
}

// Category returns the first leaf that passes ValidCategory.
func Category(leaves []string) Outcome[string] {
	return FirstOf(leaves, Strategy[[]string, string]{
		Name: "leaf-scan",
		Try: func(ls []string) (string, bool) {
			for _, l := range ls {
				if ValidCategory(l) {
					return l, true
				}
			}
			return "", false
		},
	})
}

// IsAddress reports whether s looks like a street address.
func IsAddress(s string) bool {
	if utf8.RuneCountInString(s) < minContactLen || !addressKeyword.MatchString(s) {
		return false
	}
	if strings.ContainsRune(phoneLead[:3], []rune(s)[0]) {
		return false
	}
	return !numericOnly(s)
}

// IsPhone reports whether s looks like a phone number.
func IsPhone(s string) bool {
	if utf8.RuneCountInString(s) < minContactLen || !strings.ContainsRune(phoneLead, []rune(s)[0]) {
		return false
	}
	if reviewCount.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits && !addressKeyword.MatchString(s)
}

func numericOnly(s string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', ' ', '/':
			return -1
		}
		return r
	}, s)
	if stripped == "" {
		return true
	}
	return !strings.ContainsFunc(stripped, func(r rune) bool { return !unicode.IsDigit(r) })
}

// AddressAndPhone scans leaves once, filling address and phone from distinct
// leaves. A leaf fills at most one field and the scan stops once both are set.
func AddressAndPhone(leaves []string) (address, phone Outcome[string]) {
	for _, l := range leaves {
		if address.Found && phone.Found {
			break
		}
		if utf8.RuneCountInString(l) < minContactLen {
			continue
		}
		if !address.Found && IsAddress(l) {
			address = Outcome[string]{Value: l, Source: "leaf-scan", Found: true}
			continue
		}
		if !phone.Found && IsPhone(l) {
			phone = Outcome[string]{Value: l, Source: "leaf-scan", Found: true}
		}
	}
	return address, phone
}

// ratingFromLabel pulls the numeric rating out of an accessible label like "4.5 stars".
func ratingFromLabel(label string) (string, bool) {
	if !ratingLabel.MatchString(label) {
		return "", false
	}
	v := decimal.FindString(label)
	return v, v != ""
}

func noReviewsLeaf(leaves []string) (string, bool) {
	for _, l := range leaves {
		if noReviews.MatchString(l) {
			return NoReviews, true
		}
	}
	return "", false
}

// HoursInfo is the open/closed signal and hours text found in a scope.
type HoursInfo struct {
	Status     places.Status
	OpenStatus Outcome[string]
	Hours      Outcome[string]
}

// Hours classifies hour-bearing leaves. The most specific status among them
// wins and its leaf becomes the open-status text; leaves containing a digit
// are joined into the operating-hours value.
func Hours(leaves []string) HoursInfo {
	info := HoursInfo{Status: places.StatusActive}
	var parts []string
	for _, l := range leaves {
		if !status.MentionsHours(l) {
			continue
		}
		if s, ok := status.Match(l); ok && (!info.OpenStatus.Found || s.Specificity() > info.Status.Specificity()) {
			info.Status = s
			info.OpenStatus = Outcome[string]{Value: l, Source: "hours-leaf", Found: true}
		}
		if len(parts) < maxHoursParts && strings.ContainsFunc(l, unicode.IsDigit) && !containsPart(parts, l) {
			parts = append(parts, l)
		}
	}
	if len(parts) > 0 {
		info.Hours = Outcome[string]{Value: strings.Join(parts, " · "), Source: "hours-leaf", Found: true}
	}
	return info
}

func containsPart(parts []string, s string) bool {
	for _, p := range parts {
		if strings.Contains(p, s) {
			return true
		}
	}
	return false
}
