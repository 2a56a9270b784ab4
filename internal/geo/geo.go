// Package geo recovers latitude/longitude pairs from place locators.
//
// A locator is the URL of a map view. Depending on how the view was reached it
// carries coordinates as a map center (@lat,lon), as a precise point of interest
// (!3dlat!4dlon), or as a query parameter of a share link (?q=lat,lon).
package geo

import (
	"context"
	"regexp"
	"time"

	"github.com/JakeFAU/placescraper/internal/places"
)

// Template is one positional pattern for coordinates inside a locator.
type Template struct {
	Name    string
	Pattern *regexp.Regexp
	// Format renders a locator fragment for a pair; used to round-trip patterns.
	Format func(lat, lon string) string
}

// Templates are tried in order; the first match wins.
var Templates = []Template{
	{
		Name:    "map-center",
		Pattern: regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
		Format:  func(lat, lon string) string { return "@" + lat + "," + lon + ",17z" },
	},
	{
		Name:    "poi",
		Pattern: regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`),
		Format:  func(lat, lon string) string { return "!3d" + lat + "!4d" + lon },
	},
	{
		Name:    "share",
		Pattern: regexp.MustCompile(`[?&](?:q|ll|query|center)=(-?\d+\.\d+)(?:,|%2C)\s*(-?\d+\.\d+)`),
		Format:  func(lat, lon string) string { return "?q=" + lat + "," + lon },
	},
}

// Resolve extracts the first coordinate pair found in locator.
func Resolve(locator string) (places.Coordinates, bool) {
	for _, t := range Templates {
		if m := t.Pattern.FindStringSubmatch(locator); m != nil {
			return places.Coordinates{Lat: m[1], Lon: m[2]}, true
		}
	}
	return places.Coordinates{}, false
}

const defaultPollInterval = 500 * time.Millisecond

// Locator reads the current location of a live view.
type Locator interface {
	Location(ctx context.Context) (string, error)
}

// Poll re-reads the locator every interval until it carries coordinates, the
// timeout elapses, or ctx is done. Transient read errors are retried.
func Poll(ctx context.Context, loc Locator, interval, timeout time.Duration) (places.Coordinates, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if url, err := loc.Location(ctx); err == nil {
			if c, ok := Resolve(url); ok {
				return c, nil
			}
		}
		select {
		case <-ctx.Done():
			return places.Coordinates{}, ctx.Err()
		case <-deadline.C:
			return places.Coordinates{}, places.ErrNotFound
		case <-ticker.C:
		}
	}
}
