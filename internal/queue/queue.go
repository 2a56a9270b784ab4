// Package queue defines the work queue shared by the runner and its workers.
package queue

import (
	"context"
	"errors"

	"github.com/JakeFAU/placescraper/internal/places"
)

// ErrClosed is returned by Dequeue once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue hands work items to workers.
type Queue interface {
	Enqueue(ctx context.Context, item places.WorkItem) error
	Dequeue(ctx context.Context) (places.WorkItem, error)
	Close()
}
