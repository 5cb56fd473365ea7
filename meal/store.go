package meal

import (
	"context"
	"time"
)

// Store persists meal records. Implementations must treat a non-empty
// owner as an additional equality filter on userId for Update and Delete,
// report zero matches as ErrNotFound, and return a KindStore error for a
// malformed id.
type Store interface {
	// Insert stores rec, assigning its ID, and returns the stored record.
	Insert(ctx context.Context, rec Record) (Record, error)
	// FindByUserBetween returns userID's records with ConsumedAt in
	// [start, end), ascending by ConsumedAt.
	FindByUserBetween(ctx context.Context, userID string, start, end time.Time) ([]Record, error)
	// Update applies c to the record and returns the modified count.
	Update(ctx context.Context, id, owner string, c Changes) (int64, error)
	// Delete removes the record and returns the deleted count.
	Delete(ctx context.Context, id, owner string) (int64, error)
	// Close releases the store's resources.
	Close(ctx context.Context) error
}
