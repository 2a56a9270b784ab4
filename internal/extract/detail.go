package extract

import (
	"strings"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/status"
)

// anyText returns the first non-empty text over several selectors.
func anyText(scope places.Node, selectors []string, valid func(string) bool) (string, bool) {
	for _, sel := range selectors {
		for _, n := range scope.Find(sel) {
			t := places.CleanText(n.Text())
			if t != "" && valid(t) {
				return t, true
			}
		}
	}
	return "", false
}

// labelValue strips a "Label: " prefix from an accessible label.
func labelValue(label string) string {
	if _, v, ok := strings.Cut(label, ":"); ok {
		return places.CleanText(v)
	}
	return places.CleanText(label)
}

func always(string) bool { return true }

// itemStrategies reads a data item first by text, then by its accessible label.
func itemStrategies(selector string) []Strategy[places.Node, string] {
	return []Strategy[places.Node, string]{
		{Name: "item-text", Try: func(root places.Node) (string, bool) {
			return firstText(root, selector)
		}},
		{Name: "item-label", Try: func(root places.Node) (string, bool) {
			label, ok := firstAttr(root, selector, "aria-label")
			if !ok {
				return "", false
			}
			v := labelValue(label)
			return v, v != ""
		}},
	}
}

// DetailName resolves the heading of a single-place view.
func (e *Extractor) DetailName(root places.Node) Outcome[string] {
	return FirstOf(root, Strategy[places.Node, string]{Name: "heading", Try: func(r places.Node) (string, bool) {
		return anyText(r, e.sel.DetailNames, ValidName)
	}})
}

// Detail extracts a record from a single-place view. Coordinates are resolved
// from the live locator by the caller and passed in when known. It reports
// false when no display name could be found.
func (e *Extractor) Detail(item places.WorkItem, root places.Node, coords *places.Coordinates) (places.PlaceRecord, bool) {
	name := e.DetailName(root)
	if !name.Found {
		return places.PlaceRecord{}, false
	}

	leaves := Leaves(root, e.sel.TextLeaf)

	address := FirstOf(root, itemStrategies(e.sel.DetailAddress)...)
	phone := FirstOf(root, itemStrategies(e.sel.DetailPhone)...)
	website := FirstOf(root, Strategy[places.Node, string]{Name: "authority-link", Try: func(r places.Node) (string, bool) {
		return firstAttr(r, e.sel.DetailWebsite, "href")
	}})
	category := FirstOf(root, Strategy[places.Node, string]{Name: "category-button", Try: func(r places.Node) (string, bool) {
		return anyText(r, e.sel.DetailCategories, func(s string) bool { return len(s) <= 2*maxCategoryLen })
	}})
	rating := e.detailRating(root, leaves)
	openStatus := FirstOf(root, Strategy[places.Node, string]{Name: "open-status", Try: func(r places.Node) (string, bool) {
		return anyText(r, e.sel.DetailOpenStatus, always)
	}})
	hours := FirstOf(root,
		Strategy[places.Node, string]{Name: "hours-label", Try: func(r places.Node) (string, bool) {
			label, ok := firstAttr(r, e.sel.DetailHours, "aria-label")
			if !ok {
				return "", false
			}
			return places.CleanText(label), true
		}},
		Strategy[places.Node, string]{Name: "hours-text", Try: func(r places.Node) (string, bool) {
			for _, n := range r.Find(e.sel.DetailHoursText) {
				if t := places.CleanText(n.Text()); clockTime.MatchString(t) {
					return t, true
				}
			}
			return "", false
		}},
	)

	rec := places.PlaceRecord{
		ID:             item.ID,
		Query:          item.Query,
		DisplayName:    toField(name),
		Category:       toField(category),
		Rating:         toField(rating),
		Address:        toField(address),
		Phone:          toField(phone),
		Website:        toField(website),
		Latitude:       places.Missing(),
		Longitude:      places.Missing(),
		Status:         status.Classify(root.Text()),
		OpenStatus:     toField(openStatus),
		OperatingHours: toField(hours),
	}
	if openStatus.Found {
		if s, ok := status.Match(openStatus.Value); ok {
			rec.Status = s
		}
	}
	if coords != nil {
		rec.Latitude = found(coords.Lat, "locator")
		rec.Longitude = found(coords.Lon, "locator")
	}
	return rec, true
}

func (e *Extractor) detailRating(root places.Node, leaves []string) Outcome[string] {
	strategies := make([]Strategy[places.Node, string], 0, len(e.sel.DetailRatings)+1)
	for _, sel := range e.sel.DetailRatings {
		strategies = append(strategies, Strategy[places.Node, string]{Name: "rating:" + sel, Try: func(r places.Node) (string, bool) {
			for _, n := range r.Find(sel) {
				if v := decimal.FindString(n.Text()); v != "" {
					return v, true
				}
				label, _ := n.Attr("aria-label")
				if v, ok := ratingFromLabel(label); ok {
					return v, true
				}
			}
			return "", false
		}})
	}
	strategies = append(strategies, Strategy[places.Node, string]{Name: "no-reviews", Try: func(places.Node) (string, bool) {
		return noReviewsLeaf(leaves)
	}})
	return FirstOf(root, strategies...)
}
