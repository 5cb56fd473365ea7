package meal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/thadeucbr/mcp-tools/middleware"
)

// DateLayout formats Summary.Date.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing mealData.date.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Ledger implements the meal operations over a Store. It holds no
// per-request state.
type Ledger struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	logger middleware.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLocation sets the zone that defines "today". Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithLogger sets the logger for failed operations.
func WithLogger(logger middleware.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger creates a ledger over store.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		loc:    time.Local,
		logger: middleware.NopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location returns the zone that defines "today".
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// DayBounds returns the local day containing t as [start, start+24h).
// start is midnight in loc; end is exactly 24 hours later even across a
// DST change.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	t = t.In(loc)
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// Create logs a meal for userID. mealType, description and calories are
// required; macros default to 0 and consumedAt to now.
func (l *Ledger) Create(ctx context.Context, userID string, data MealData) (Record, error) {
	const op = "create"

	if strings.TrimSpace(userID) == "" {
		return Record{}, invalidf(op, "userId is required")
	}
	mealType, ok := data.MealType.Get()
	if !ok || strings.TrimSpace(mealType) == "" {
		return Record{}, invalidf(op, "mealData.mealType is required")
	}
	description, ok := data.Description.Get()
	if !ok || strings.TrimSpace(description) == "" {
		return Record{}, invalidf(op, "mealData.description is required")
	}
	if !data.Calories.Set {
		return Record{}, invalidf(op, "mealData.calories is required")
	}
	if err := checkNonNegative(op, data); err != nil {
		return Record{}, err
	}

	now := l.now()
	rec := Record{
		UserID:      userID,
		MealType:    mealType,
		Description: description,
		Calories:    data.Calories.Value,
		Carbs:       data.Carbs.Or(0),
		Protein:     data.Protein.Or(0),
		Fat:         data.Fat.Or(0),
		ConsumedAt:  l.consumedAt(data.Date, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, err := l.store.Insert(ctx, rec)
	if err != nil {
		return Record{}, storeErr(op, err)
	}
	return l.localize(stored), nil
}

// ReadToday returns userID's meals consumed today, oldest first.
func (l *Ledger) ReadToday(ctx context.Context, userID string) ([]Record, error) {
	const op = "read"

	if strings.TrimSpace(userID) == "" {
		return nil, invalidf(op, "userId is required")
	}
	start, end := DayBounds(l.now(), l.loc)
	return l.between(ctx, op, userID, start, end)
}

// Update applies the present fields of data to mealID and refreshes
// updatedAt. A non-empty owner must match the record's userId.
func (l *Ledger) Update(ctx context.Context, mealID, owner string, data MealData) (UpdateResult, error) {
	const op = "update"

	if strings.TrimSpace(mealID) == "" {
		return UpdateResult{}, invalidf(op, "mealId is required")
	}
	if err := checkNonNegative(op, data); err != nil {
		return UpdateResult{}, err
	}

	modified, err := l.store.Update(ctx, mealID, owner, Changes{
		MealType:    data.MealType,
		Description: data.Description,
		Calories:    data.Calories,
		Carbs:       data.Carbs,
		Protein:     data.Protein,
		Fat:         data.Fat,
		UpdatedAt:   l.now(),
	})
	if err != nil {
		return UpdateResult{}, storeErr(op, err)
	}
	return UpdateResult{ModifiedCount: modified}, nil
}

// Delete permanently removes mealID. A non-empty owner must match the
// record's userId.
func (l *Ledger) Delete(ctx context.Context, mealID, owner string) (DeleteResult, error) {
	const op = "delete"

	if strings.TrimSpace(mealID) == "" {
		return DeleteResult{}, invalidf(op, "mealId is required")
	}

	deleted, err := l.store.Delete(ctx, mealID, owner)
	if err != nil {
		return DeleteResult{}, storeErr(op, err)
	}
	return DeleteResult{DeletedCount: deleted}, nil
}

// DailySummary totals userID's meals for today.
func (l *Ledger) DailySummary(ctx context.Context, userID string) (Summary, error) {
	const op = "daily_summary"

	if strings.TrimSpace(userID) == "" {
		return Summary{}, invalidf(op, "userId is required")
	}

	start, end := DayBounds(l.now(), l.loc)
	meals, err := l.between(ctx, op, userID, start, end)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Date:   start.Format(DateLayout),
		Totals: Summarize(meals),
		Meals:  meals,
	}, nil
}

// Summarize sums the nutrients of meals. Values are accumulated as
// decimals so repeated fractional macros do not drift.
func Summarize(meals []Record) Totals {
	var calories, carbs, protein, fat decimal.Decimal
	for _, m := range meals {
		calories = calories.Add(decimal.NewFromFloat(m.Calories))
		carbs = carbs.Add(decimal.NewFromFloat(m.Carbs))
		protein = protein.Add(decimal.NewFromFloat(m.Protein))
		fat = fat.Add(decimal.NewFromFloat(m.Fat))
	}
	return Totals{
		TotalCalories: calories.InexactFloat64(),
		TotalCarbs:    carbs.InexactFloat64(),
		TotalProtein:  protein.InexactFloat64(),
		TotalFat:      fat.InexactFloat64(),
		MealCount:     len(meals),
	}
}

// between reads userID's meals in [start, end). Callers compute the bounds
// once so a summary's date always matches the meals it carries.
func (l *Ledger) between(ctx context.Context, op, userID string, start, end time.Time) ([]Record, error) {
	meals, err := l.store.FindByUserBetween(ctx, userID, start, end)
	if err != nil {
		return nil, storeErr(op, err)
	}
	for i := range meals {
		meals[i] = l.localize(meals[i])
	}
	return meals, nil
}

// consumedAt parses the optional date in the ledger's zone, falling back
// to now when it is missing or unparsable.
func (l *Ledger) consumedAt(date Opt[string], now time.Time) time.Time {
	s, ok := date.Get()
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return now
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, l.loc); err == nil {
			return t
		}
	}
	l.logger.Debug("unparsable meal date, using now", middleware.F("date", s))
	return now
}

func (l *Ledger) localize(r Record) Record {
	r.ConsumedAt = r.ConsumedAt.In(l.loc)
	r.CreatedAt = r.CreatedAt.In(l.loc)
	r.UpdatedAt = r.UpdatedAt.In(l.loc)
	return r
}

func checkNonNegative(op string, data MealData) error {
	fields := []struct {
		name string
		v    Opt[float64]
	}{
		{"calories", data.Calories},
		{"carbs", data.Carbs},
		{"protein", data.Protein},
		{"fat", data.Fat},
	}
	for _, f := range fields {
		if f.v.Set && f.v.Value < 0 {
			return invalidf(op, "mealData.%s must not be negative", f.name)
		}
	}
	return nil
}
