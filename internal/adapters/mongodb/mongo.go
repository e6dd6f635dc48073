// Package mongodb is the MongoDB connection hub, grounded on the
// teacher's common/mmongo MongoConnection: a lazily-initialized singleton
// client the rest of the package pulls a *mongo.Database from. No
// repository in this module reads or writes aggregate Metadata through
// it, and C3's relational repositories do not persist that field either.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// Connection is a hub that deals with mongodb connections.
type Connection struct {
	ConnectionStringSource string
	Database               string

	client    *mongo.Client
	Connected bool
	Logger    mlog.Logger
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return mlog.NoneLogger{}
}

// Connect dials mongodb and pings to confirm liveness.
func (c *Connection) Connect(ctx context.Context) error {
	c.logger().Info("connecting to mongodb")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.ConnectionStringSource))
	if err != nil {
		return fmt.Errorf("mongodb: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb: ping: %w", err)
	}

	c.logger().Info("connected to mongodb")

	c.client = client
	c.Connected = true

	return nil
}

// GetDatabase returns the configured database, connecting first if
// necessary.
func (c *Connection) GetDatabase(ctx context.Context) (*mongo.Database, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database), nil
}
