package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
	"github.com/zatekoja/facilityfinder/backend/pkg/retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client represents a MongoDB client bound to one database
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	cfg      config.MongoConfig
}

// NewClient connects to MongoDB with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	err = retry.Do(ctx, retry.DefaultConfig(), "MongoDB", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("connected to MongoDB")
	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		cfg:      *cfg,
	}, nil
}

// Facilities returns the facility collection
func (c *Client) Facilities() *mongo.Collection {
	return c.database.Collection(c.cfg.Collection)
}

// Database returns the configured database
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Close disconnects from MongoDB
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Ping verifies the connection to MongoDB
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}
