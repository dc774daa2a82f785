package database

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/model"
)

// GuildDatabase wraps a BaseDatabase with typed item access and a bounded
// reconnect retry. It is constructed once at startup and passed explicitly
// to the components that need it.
type GuildDatabase struct {
	db      BaseDatabase
	setOps  SetOperator
	canSets bool
}

// NewGuildDatabase resolves the backend's set-operation capability once, at
// construction time.
func NewGuildDatabase(db BaseDatabase) *GuildDatabase {
	setOps, ok := db.(SetOperator)
	return &GuildDatabase{db: db, setOps: setOps, canSets: ok}
}

// Connect establishes the backend connection.
func (g *GuildDatabase) Connect(ctx context.Context) error {
	return g.db.StartConnection(ctx)
}

// withReconnect runs an operation and, on failure, reconnects once and
// retries exactly once more. A second failure propagates. This bounds retry
// amplification to one extra attempt per logical operation.
func (g *GuildDatabase) withReconnect(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	log.Printf("Database operation failed, reconnecting: %v", err)
	if rerr := g.db.Reconnect(ctx); rerr != nil {
		return fmt.Errorf("reconnect after %v failed: %w", err, rerr)
	}
	return op(ctx)
}

// GetItem finds records matching the item's identity in its collection.
func (g *GuildDatabase) GetItem(ctx context.Context, item model.GuildItem) ([]model.GuildItem, error) {
	var docs []bson.M
	err := g.withReconnect(ctx, func(ctx context.Context) error {
		var ferr error
		docs, ferr = g.db.Find(ctx, item.Collection(), item.Query())
		return ferr
	})
	if err != nil {
		return nil, err
	}
	items := make([]model.GuildItem, len(docs))
	for i, doc := range docs {
		items[i] = item.Import(doc)
	}
	return items, nil
}

// AddItem inserts items, grouped per collection. Empty input is a no-op.
func (g *GuildDatabase) AddItem(ctx context.Context, items ...model.GuildItem) error {
	grouped := map[model.Collection][]bson.M{}
	for _, item := range items {
		grouped[item.Collection()] = append(grouped[item.Collection()], item.Document())
	}
	for coll, docs := range grouped {
		coll, docs := coll, docs
		err := g.withReconnect(ctx, func(ctx context.Context) error {
			return g.db.Insert(ctx, coll, docs...)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteItem removes items by identity, grouped per collection.
func (g *GuildDatabase) DeleteItem(ctx context.Context, items ...model.GuildItem) error {
	grouped := map[model.Collection][]bson.M{}
	for _, item := range items {
		grouped[item.Collection()] = append(grouped[item.Collection()], item.Query())
	}
	for coll, queries := range grouped {
		coll, queries := coll, queries
		err := g.withReconnect(ctx, func(ctx context.Context) error {
			return g.db.Delete(ctx, coll, queries...)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SetItemProperty sets one field (dotted paths allowed) on all matches.
func (g *GuildDatabase) SetItemProperty(ctx context.Context, item model.GuildItem, field string, value interface{}) error {
	return g.withReconnect(ctx, func(ctx context.Context) error {
		return g.db.Update(ctx, item.Collection(), item.Query(), field, value)
	})
}

// UnsetItemProperty removes one field (dotted paths allowed) on all matches.
func (g *GuildDatabase) UnsetItemProperty(ctx context.Context, item model.GuildItem, field string) error {
	return g.withReconnect(ctx, func(ctx context.Context) error {
		return g.db.Unset(ctx, item.Collection(), item.Query(), field)
	})
}

// AddToSet adds a value to an array field, deduplicated. Backends with
// native set operations do this atomically; otherwise the value is added by
// read-modify-write, which is not atomic against concurrent writers. On the
// fallback path anything other than exactly one match is skipped, since the
// write target would be ambiguous.
func (g *GuildDatabase) AddToSet(ctx context.Context, item model.GuildItem, field string, value string) error {
	if g.canSets {
		return g.withReconnect(ctx, func(ctx context.Context) error {
			return g.setOps.AddToSet(ctx, item.Collection(), item.Query(), field, value)
		})
	}
	return g.editArray(ctx, item, field, func(current []string) ([]string, bool) {
		for _, existing := range current {
			if existing == value {
				return nil, false
			}
		}
		return append(current, value), true
	})
}

// RemoveFromArray removes a value from an array field, with the same
// fallback semantics as AddToSet.
func (g *GuildDatabase) RemoveFromArray(ctx context.Context, item model.GuildItem, field string, value string) error {
	if g.canSets {
		return g.withReconnect(ctx, func(ctx context.Context) error {
			return g.setOps.RemoveFromArray(ctx, item.Collection(), item.Query(), field, value)
		})
	}
	return g.editArray(ctx, item, field, func(current []string) ([]string, bool) {
		next := make([]string, 0, len(current))
		for _, existing := range current {
			if existing != value {
				next = append(next, existing)
			}
		}
		return next, len(next) != len(current)
	})
}

func (g *GuildDatabase) editArray(ctx context.Context, item model.GuildItem, field string, edit func([]string) ([]string, bool)) error {
	var docs []bson.M
	err := g.withReconnect(ctx, func(ctx context.Context) error {
		var ferr error
		docs, ferr = g.db.Find(ctx, item.Collection(), item.Query())
		return ferr
	})
	if err != nil {
		return err
	}
	if len(docs) != 1 {
		return nil
	}
	current, _ := lookupPath(docs[0], field)
	next, changed := edit(model.AsStringSlice(current))
	if !changed {
		return nil
	}
	return g.withReconnect(ctx, func(ctx context.Context) error {
		return g.db.Update(ctx, item.Collection(), item.Query(), field, next)
	})
}

// AddPermission grants a permission string to a user or role record.
func (g *GuildDatabase) AddPermission(ctx context.Context, item model.PermissionedItem, permission string) error {
	return g.AddToSet(ctx, item, model.FieldPermissions, permission)
}

// DeletePermission revokes a permission string from a user or role record.
func (g *GuildDatabase) DeletePermission(ctx context.Context, item model.PermissionedItem, permission string) error {
	return g.RemoveFromArray(ctx, item, model.FieldPermissions, permission)
}

// GetUsersAndRoles snapshots the mirrored user and role identifiers. The
// two collection scans run concurrently.
func (g *GuildDatabase) GetUsersAndRoles(ctx context.Context) (users []string, roles []string, err error) {
	var wg sync.WaitGroup
	var userErr, roleErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		users, userErr = g.collectIDs(ctx, model.CollectionUsers)
	}()
	go func() {
		defer wg.Done()
		roles, roleErr = g.collectIDs(ctx, model.CollectionRoles)
	}()
	wg.Wait()
	if userErr != nil {
		return nil, nil, userErr
	}
	if roleErr != nil {
		return nil, nil, roleErr
	}
	return users, roles, nil
}

// GetChannels returns every mirrored channel record.
func (g *GuildDatabase) GetChannels(ctx context.Context) ([]*model.ChannelItem, error) {
	var docs []bson.M
	err := g.withReconnect(ctx, func(ctx context.Context) error {
		var ferr error
		docs, ferr = g.db.Find(ctx, model.CollectionChannels, bson.M{})
		return ferr
	})
	if err != nil {
		return nil, err
	}
	channels := make([]*model.ChannelItem, len(docs))
	for i, doc := range docs {
		channels[i] = (&model.ChannelItem{}).Import(doc).(*model.ChannelItem)
	}
	return channels, nil
}

func (g *GuildDatabase) collectIDs(ctx context.Context, coll model.Collection) ([]string, error) {
	var docs []bson.M
	err := g.withReconnect(ctx, func(ctx context.Context) error {
		var ferr error
		docs, ferr = g.db.Find(ctx, coll, bson.M{})
		return ferr
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc[model.FieldID].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
