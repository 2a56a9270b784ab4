// Package checkpoint derives the set of already-processed ids from the output
// store, so an interrupted run resumes without repeating finished work.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/JakeFAU/placescraper/internal/places"
)

// IDReader lists the ids of every record already persisted.
type IDReader interface {
	ReadIDs(ctx context.Context) ([]string, error)
}

// Set is the collection of ids with at least one persisted record.
type Set map[string]struct{}

// Load reads the processed ids from r. A store with no records yields an empty set.
func Load(ctx context.Context, r IDReader) (Set, error) {
	ids, err := r.ReadIDs(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("load checkpoint: %w", err)
	}
	s := make(Set, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s, nil
}

// Done reports whether id was already processed.
func (s Set) Done(id string) bool {
	_, ok := s[id]
	return ok
}

// Pending filters items down to those not yet processed, keeping input order.
// Repeated ids in the input are kept; each occurrence is processed.
func (s Set) Pending(items []places.WorkItem) []places.WorkItem {
	out := make([]places.WorkItem, 0, len(items))
	for _, it := range items {
		if !s.Done(it.ID) {
			out = append(out, it)
		}
	}
	return out
}
