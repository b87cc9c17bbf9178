package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig describes the cart database. Zero values take the defaults
// below.
type MongoConfig struct {
	URI            string
	Database       string
	AppName        string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
}

func (c MongoConfig) withDefaults() MongoConfig {
	if c.AppName == "" {
		c.AppName = "storefront"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 100
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

func (c MongoConfig) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetAppName(c.AppName).
		SetConnectTimeout(c.ConnectTimeout).
		SetServerSelectionTimeout(c.ConnectTimeout / 2).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MaxPoolSize / 10).
		SetRetryWrites(true)
}

// ConnectMongoDB opens the cart database once the primary answers a ping.
// A client that cannot reach the primary is disconnected again.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	cfg = cfg.withDefaults()
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	client, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	return client.Database(cfg.Database), nil
}

// OpenCartRepository connects, makes sure the cart indexes exist and returns
// the repository with a function that closes its connection.
func OpenCartRepository(ctx context.Context, cfg MongoConfig) (CartRepository, func(context.Context) error, error) {
	db, err := ConnectMongoDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func(ctx context.Context) error { return db.Client().Disconnect(ctx) }

	repo := newMongoRepository(db)
	if err := repo.CreateIndexes(ctx); err != nil {
		_ = closeFn(context.WithoutCancel(ctx))
		return nil, nil, err
	}
	return repo, closeFn, nil
}
