package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo handles the persistence of match records.
type MongoRepo struct {
	collection *mongo.Collection
}

// NewMongoRepo creates a MongoRepo with the given MongoDB client, database name, and collection name.
func NewMongoRepo(client *mongo.Client, dbName, collectionName string) *MongoRepo {
	return &MongoRepo{
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Save inserts or replaces a match record.
func (r *MongoRepo) Save(ctx context.Context, m MatchRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	filter := bson.M{"_id": m.ID}
	update := bson.M{
		"$set": bson.M{
			"winner":    m.Winner,
			"players":   m.Players,
			"kills":     m.Kills,
			"startedAt": m.StartedAt,
			"endedAt":   m.EndedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

// Recent returns the latest matches, newest first.
func (r *MongoRepo) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "endedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find matches: %w", err)
	}
	defer cursor.Close(ctx)

	var out []MatchRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	return out, nil
}

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}
	return client, nil
}
