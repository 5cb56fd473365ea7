package meal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOwnerFilter(t *testing.T) {
	id := primitive.NewObjectID()

	filter, err := ownerFilter(id.Hex(), "")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": id}, filter)

	filter, err = ownerFilter(id.Hex(), "u1")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": id, "userId": "u1"}, filter)

	_, err = ownerFilter("xyz", "")
	assert.Error(t, err)
}

func TestDayFilter(t *testing.T) {
	start, end := DayBounds(time.Date(2026, 10, 19, 9, 0, 0, 0, testZone), testZone)
	assert.Equal(t, bson.M{
		"userId":     "u1",
		"consumedAt": bson.M{"$gte": start, "$lt": end},
	}, dayFilter("u1", start, end))
}

func TestSetDocument(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{"updatedAt": now}, setDocument(Changes{UpdatedAt: now}))

	assert.Equal(t, bson.M{
		"updatedAt":   now,
		"calories":    0.0,
		"description": "",
	}, setDocument(Changes{Calories: Some(0.0), Description: Some(""), UpdatedAt: now}))
}

func TestDocumentRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rec := Record{
		UserID: "u", MealType: "snack", Description: "apple",
		Calories: 95, Carbs: 25, Protein: 0.5, Fat: 0.3,
		ConsumedAt: at, CreatedAt: at, UpdatedAt: at,
	}

	doc := toDocument(rec)
	assert.True(t, doc.ID.IsZero(), "id is assigned by the database")

	doc.ID = primitive.NewObjectID()
	back := fromDocument(doc)
	rec.ID = doc.ID.Hex()
	assert.Equal(t, rec, back)
}

// TestMongoStore runs against a live server when MEAL_TEST_MONGO_URI is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MEAL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MEAL_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := ConnectMongo(ctx, MongoConfig{
		URI:        uri,
		Database:   "meal_test",
		Collection: "meals_" + primitive.NewObjectID().Hex(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.coll.Drop(context.Background())
		_ = store.Close(context.Background())
	})

	clock := newFakeClock()
	ledger := NewLedger(store, WithClock(clock.Now), WithLocation(testZone))

	rec, err := ledger.Create(ctx, "u1", lunch(450))
	require.NoError(t, err)

	_, err = ledger.Update(ctx, rec.ID, "intruder", MealData{Calories: Some(1.0)})
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := ledger.Update(ctx, rec.ID, "u1", MealData{Calories: Some(500.0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	_, err = ledger.Update(ctx, "bogus", "", MealData{})
	assert.ErrorIs(t, err, ErrStore)

	summary, err := ledger.DailySummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, summary.Totals.TotalCalories)

	del, err := ledger.Delete(ctx, rec.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), del.DeletedCount)

	_, err = ledger.Delete(ctx, rec.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
