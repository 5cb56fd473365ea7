// Package meal records meals per user and summarises each user's day.
//
// # Ledger
//
// A Ledger sits on top of a Store and owns the rules: required fields,
// non-negative macros, consumption time defaults and day boundaries.
//
//	ledger := meal.NewLedger(meal.NewMemoryStore(),
//	    meal.WithLocation(loc),
//	)
//	rec, err := ledger.Create(ctx, "u1", meal.MealData{
//	    MealType:    meal.Some("lunch"),
//	    Description: meal.Some("rice and beans"),
//	    Calories:    meal.Some(650.0),
//	})
//
// "Today" is the half-open interval [local midnight, next local midnight)
// in the ledger's location. Read and DailySummary only see meals consumed
// inside it.
//
// # Stores
//
// MongoStore persists meals in a MongoDB collection keyed by ObjectID.
// MemoryStore keeps them in a map and backs the tests and examples.
//
// # Tool
//
// RegisterTools exposes the ledger as the meal_register tool. Every call
// answers with an Envelope; failures set success=false and carry the
// message in data instead of surfacing as a tool error.
package meal
