package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Open connects to MongoDB and verifies the connection.
func Open(ctx context.Context, uri string) (*mongo.Client, error) {
	// Pool sizing is left to the driver defaults.
	opts := options.Client().ApplyURI(uri).SetAppName("notes-service")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	// Ping with timeout; Connect alone does not reach the server.
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Collection selects the named collection of the named database.
func Collection(client *mongo.Client, db, coll string) *mongo.Collection {
	return client.Database(db).Collection(coll)
}
