package store

import (
	"context"
	"errors"

	"github.com/JakeFAU/placescraper/internal/places"
)

// ErrNoIDColumn signals that existing output has no recognizable id column.
var ErrNoIDColumn = errors.New("output has no id column")

// Output is an append-only record store that doubles as the checkpoint source.
type Output interface {
	// Append durably writes records in order.
	Append(ctx context.Context, records []places.PlaceRecord) error
	// ReadIDs lists the id of every persisted record; an empty store yields none.
	ReadIDs(ctx context.Context) ([]string, error)
	// Table returns the header and every persisted row as text.
	Table(ctx context.Context) ([]string, [][]string, error)
	Close() error
}
