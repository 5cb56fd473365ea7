package meal

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store with the same id format and matching
// rules as MongoStore. Used by tests and the in-memory server mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	order   map[string]int
	seq     int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		order:   make(map[string]int),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, storeErr("insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = primitive.NewObjectID().Hex()
	s.seq++
	s.records[rec.ID] = rec
	s.order[rec.ID] = s.seq
	return rec, nil
}

// FindByUserBetween implements Store.
func (s *MemoryStore) FindByUserBetween(ctx context.Context, userID string, start, end time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("find", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.UserID == userID && !rec.ConsumedAt.Before(start) && rec.ConsumedAt.Before(end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConsumedAt.Equal(out[j].ConsumedAt) {
			return out[i].ConsumedAt.Before(out[j].ConsumedAt)
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, id, owner string, c Changes) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("update", err)
	}
	if _, err := parseID(id); err != nil {
		return 0, storeErr("update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || (owner != "" && rec.UserID != owner) {
		return 0, notFound("update", id)
	}

	rec.MealType = c.MealType.Or(rec.MealType)
	rec.Description = c.Description.Or(rec.Description)
	rec.Calories = c.Calories.Or(rec.Calories)
	rec.Carbs = c.Carbs.Or(rec.Carbs)
	rec.Protein = c.Protein.Or(rec.Protein)
	rec.Fat = c.Fat.Or(rec.Fat)
	rec.UpdatedAt = c.UpdatedAt
	s.records[id] = rec
	return 1, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id, owner string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("delete", err)
	}
	if _, err := parseID(id); err != nil {
		return 0, storeErr("delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || (owner != "" && rec.UserID != owner) {
		return 0, notFound("delete", id)
	}
	delete(s.records, id)
	delete(s.order, id)
	return 1, nil
}

// Get returns a record by id.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}
