package meal

import (
	"sync"
	"time"
)

var testZone = time.FixedZone("BRT", -3*60*60)

// fakeClock is a settable clock for ledger tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 14, 30, 0, 0, testZone)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLedger() (*Ledger, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := newFakeClock()
	return NewLedger(store, WithClock(clock.Now), WithLocation(testZone)), store, clock
}

func lunch(calories float64) MealData {
	return MealData{
		MealType:    Some("lunch"),
		Description: Some("rice and beans"),
		Calories:    Some(calories),
	}
}
