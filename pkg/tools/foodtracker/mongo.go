package foodtracker

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMealStore persists food logs in a MongoDB collection.
type MongoMealStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoMealStore connects to MongoDB and returns a store backed by the
// given database and collection.
func NewMongoMealStore(uri, dbName, collectionName string) (*MongoMealStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	// Ping to ensure the connection is live
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	store := &MongoMealStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}

	log.Println("connected to MongoDB food log store")
	return store, nil
}

func (ms *MongoMealStore) Insert(ctx context.Context, meal Meal) error {
	_, err := ms.collection.InsertOne(ctx, meal)
	return err
}

func (ms *MongoMealStore) Range(ctx context.Context, from, to time.Time) ([]Meal, error) {
	filter := bson.M{"logged_at": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "logged_at", Value: 1}})

	cursor, err := ms.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var meals []Meal
	if err := cursor.All(ctx, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// Close disconnects the MongoDB client
func (ms *MongoMealStore) Close() error {
	return ms.client.Disconnect(context.Background())
}
