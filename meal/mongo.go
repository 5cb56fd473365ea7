package meal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig locates the meal collection.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

// MongoStore keeps meals in a MongoDB collection through one pooled client
// shared by every request.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	MealType    string             `bson:"mealType"`
	Description string             `bson:"description"`
	Calories    float64            `bson:"calories"`
	Carbs       float64            `bson:"carbs"`
	Protein     float64            `bson:"protein"`
	Fat         float64            `bson:"fat"`
	ConsumedAt  time.Time          `bson:"consumedAt"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ConnectMongo dials cfg.URI, pings the primary and ensures the
// (userId, consumedAt) index exists.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client, client.Database(cfg.Database).Collection(cfg.Collection))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStore wraps an existing client and collection.
func NewMongoStore(client *mongo.Client, coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, coll: coll}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "consumedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create meal index: %w", err)
	}
	return nil
}

// Insert implements Store.
func (s *MongoStore) Insert(ctx context.Context, rec Record) (Record, error) {
	doc := toDocument(rec)
	doc.ID = primitive.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return Record{}, storeErr("insert", err)
	}
	return fromDocument(doc), nil
}

// FindByUserBetween implements Store.
func (s *MongoStore) FindByUserBetween(ctx context.Context, userID string, start, end time.Time) ([]Record, error) {
	cursor, err := s.coll.Find(ctx, dayFilter(userID, start, end),
		options.Find().SetSort(bson.D{{Key: "consumedAt", Value: 1}}))
	if err != nil {
		return nil, storeErr("find", err)
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("find", err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDocument(doc))
	}
	return records, nil
}

// Update implements Store.
func (s *MongoStore) Update(ctx context.Context, id, owner string, c Changes) (int64, error) {
	filter, err := ownerFilter(id, owner)
	if err != nil {
		return 0, storeErr("update", err)
	}

	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": setDocument(c)})
	if err != nil {
		return 0, storeErr("update", err)
	}
	if res.MatchedCount == 0 {
		return 0, notFound("update", id)
	}
	return res.ModifiedCount, nil
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, id, owner string) (int64, error) {
	filter, err := ownerFilter(id, owner)
	if err != nil {
		return 0, storeErr("delete", err)
	}

	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, storeErr("delete", err)
	}
	if res.DeletedCount == 0 {
		return 0, notFound("delete", id)
	}
	return res.DeletedCount, nil
}

// Close disconnects the pooled client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("malformed meal id %q: %w", id, err)
	}
	return oid, nil
}

func ownerFilter(id, owner string) (bson.M, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}
	if owner != "" {
		filter["userId"] = owner
	}
	return filter, nil
}

func dayFilter(userID string, start, end time.Time) bson.M {
	return bson.M{
		"userId":     userID,
		"consumedAt": bson.M{"$gte": start, "$lt": end},
	}
}

func setDocument(c Changes) bson.M {
	set := bson.M{"updatedAt": c.UpdatedAt}
	if v, ok := c.MealType.Get(); ok {
		set["mealType"] = v
	}
	if v, ok := c.Description.Get(); ok {
		set["description"] = v
	}
	if v, ok := c.Calories.Get(); ok {
		set["calories"] = v
	}
	if v, ok := c.Carbs.Get(); ok {
		set["carbs"] = v
	}
	if v, ok := c.Protein.Get(); ok {
		set["protein"] = v
	}
	if v, ok := c.Fat.Get(); ok {
		set["fat"] = v
	}
	return set
}

func toDocument(r Record) document {
	return document{
		UserID:      r.UserID,
		MealType:    r.MealType,
		Description: r.Description,
		Calories:    r.Calories,
		Carbs:       r.Carbs,
		Protein:     r.Protein,
		Fat:         r.Fat,
		ConsumedAt:  r.ConsumedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromDocument(d document) Record {
	return Record{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		MealType:    d.MealType,
		Description: d.Description,
		Calories:    d.Calories,
		Carbs:       d.Carbs,
		Protein:     d.Protein,
		Fat:         d.Fat,
		ConsumedAt:  d.ConsumedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
