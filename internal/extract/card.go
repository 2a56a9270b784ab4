package extract

import (
	"github.com/JakeFAU/placescraper/internal/geo"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/status"
)

// Card scopes extraction to one entry of a result list: the link element that
// opens the place and the container rendering its summary.
type Card struct {
	Link      places.Node
	Container places.Node
}

// Extractor turns rendered views into place records.
type Extractor struct {
	sel Selectors
}

// New builds an Extractor over the given selectors.
func New(sel Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// Selectors returns the selectors the extractor was built with.
func (e *Extractor) Selectors() Selectors {
	return e.sel
}

// Cards locates every result entry in a list view, pairing each link with its
// nearest container. A link without a container is its own container.
func (e *Extractor) Cards(root places.Node) []Card {
	links := root.Find(e.sel.CardLink)
	cards := make([]Card, 0, len(links))
	for _, link := range links {
		container := link
		for _, sel := range e.sel.CardContainers {
			if c, ok := link.Closest(sel); ok {
				container = c
				break
			}
		}
		cards = append(cards, Card{Link: link, Container: container})
	}
	return cards
}

// Name resolves the display name of a card.
func (e *Extractor) Name(card Card) Outcome[string] {
	return FirstOf(card,
		Strategy[Card, string]{Name: "aria-label", Try: func(c Card) (string, bool) {
			label, ok := c.Link.Attr("aria-label")
			if !ok {
				return "", false
			}
			return labelName(label)
		}},
		Strategy[Card, string]{Name: "heading", Try: func(c Card) (string, bool) {
			t, ok := firstText(c.Container, e.sel.CardHeading)
			return t, ok && ValidName(t)
		}},
	)
}

// Rating resolves the rating of a card: the numeric badge, then the number in
// a star label, then the no-reviews marker.
func (e *Extractor) Rating(card Card, leaves []string) Outcome[string] {
	return FirstOf(card,
		Strategy[Card, string]{Name: "rating-value", Try: func(c Card) (string, bool) {
			t, ok := firstText(c.Container, e.sel.RatingValue)
			if !ok {
				return "", false
			}
			v := decimal.FindString(t)
			return v, v != ""
		}},
		Strategy[Card, string]{Name: "rating-label", Try: func(c Card) (string, bool) {
			for _, n := range c.Container.Find(e.sel.RatingLabel) {
				label, _ := n.Attr("aria-label")
				if v, ok := ratingFromLabel(label); ok {
					return v, true
				}
			}
			return "", false
		}},
		Strategy[Card, string]{Name: "no-reviews", Try: func(Card) (string, bool) {
			return noReviewsLeaf(leaves)
		}},
	)
}

// Card extracts a record from one result entry. It reports false when no
// display name could be found; such a candidate is discarded.
func (e *Extractor) Card(item places.WorkItem, card Card) (places.PlaceRecord, bool) {
	name := e.Name(card)
	if !name.Found {
		return places.PlaceRecord{}, false
	}

	leaves := Leaves(card.Container, e.sel.TextLeaf)
	address, phone := AddressAndPhone(leaves)
	hours := Hours(leaves)

	rec := places.PlaceRecord{
		ID:             item.ID,
		Query:          item.Query,
		DisplayName:    toField(name),
		Category:       toField(Category(leaves)),
		Rating:         toField(e.Rating(card, leaves)),
		Address:        toField(address),
		Phone:          toField(phone),
		Website:        places.Missing(),
		Latitude:       places.Missing(),
		Longitude:      places.Missing(),
		Status:         status.Classify(card.Container.Text()),
		OpenStatus:     toField(hours.OpenStatus),
		OperatingHours: toField(hours.Hours),
	}
	if hours.OpenStatus.Found {
		rec.Status = hours.Status
	}
	if href, ok := firstAttr(card.Container, e.sel.Website, "href"); ok {
		rec.Website = found(href, "website-link")
	}
	if href, ok := card.Link.Attr("href"); ok {
		if c, ok := geo.Resolve(href); ok {
			rec.Latitude = found(c.Lat, "link")
			rec.Longitude = found(c.Lon, "link")
		}
	}
	return rec, true
}
