package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/model"
)

// BaseDatabase is the storage contract the rest of the bot programs
// against. Queries are structural-equality filters on stored documents.
// Insert and Delete are batch-aware; empty batches are no-ops.
type BaseDatabase interface {
	// StartConnection establishes the connection. It is idempotent and
	// safe for concurrent callers: a single in-flight attempt is shared
	// rather than raced.
	StartConnection(ctx context.Context) error

	// Reconnect probes liveness and re-establishes the connection when
	// the probe fails.
	Reconnect(ctx context.Context) error

	Insert(ctx context.Context, coll model.Collection, docs ...bson.M) error
	Delete(ctx context.Context, coll model.Collection, queries ...bson.M) error
	Find(ctx context.Context, coll model.Collection, query bson.M) ([]bson.M, error)

	// Update sets one field (dotted paths address nested values) across
	// all matching documents.
	Update(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error

	// Unset removes one field across all matching documents.
	Unset(ctx context.Context, coll model.Collection, query bson.M, field string) error
}

// SetOperator is implemented by backends with native atomic set-membership
// edits. Backends without it get the read-modify-write fallback in
// GuildDatabase, which is not atomic against concurrent writers.
type SetOperator interface {
	AddToSet(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error
	RemoveFromArray(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error
}
