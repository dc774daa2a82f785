package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"beniyu-bot/model"
)

const (
	connectRetries = 3
	connectDelay   = 500 * time.Millisecond
)

// connectAttempt is shared between concurrent StartConnection callers so
// only one connection attempt is in flight at a time.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// MongoDatabase is the document-store implementation of BaseDatabase. It
// also implements SetOperator through $addToSet and $pull.
type MongoDatabase struct {
	uri  string
	name string

	mu       sync.Mutex
	inflight *connectAttempt
	client   *mongo.Client
	db       *mongo.Database
}

func NewMongoDatabase(uri, name string) *MongoDatabase {
	return &MongoDatabase{uri: uri, name: name}
}

// StartConnection connects with bounded retry. Concurrent callers await the
// single in-flight attempt instead of racing their own.
func (m *MongoDatabase) StartConnection(ctx context.Context) error {
	m.mu.Lock()
	if attempt := m.inflight; attempt != nil {
		m.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &connectAttempt{done: make(chan struct{})}
	m.inflight = attempt
	m.mu.Unlock()

	attempt.err = m.connectWithRetry(ctx)

	m.mu.Lock()
	m.inflight = nil
	m.mu.Unlock()
	close(attempt.done)
	return attempt.err
}

func (m *MongoDatabase) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for i := 0; i <= connectRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(connectDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.uri))
		if err != nil {
			lastErr = err
			log.Printf("Mongo connection attempt %d failed: %v", i+1, err)
			continue
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			lastErr = err
			log.Printf("Mongo ping on attempt %d failed: %v", i+1, err)
			_ = client.Disconnect(ctx)
			continue
		}
		m.mu.Lock()
		previous := m.client
		m.client = client
		m.db = client.Database(m.name)
		m.mu.Unlock()
		if previous != nil {
			_ = previous.Disconnect(ctx)
		}
		return nil
	}
	return fmt.Errorf("unable to connect to database: %w", lastErr)
}

// Reconnect pings the server and restarts the connection when the ping
// fails.
func (m *MongoDatabase) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client != nil {
		if err := client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		} else {
			log.Printf("Database unreachable, reconnecting: %v", err)
		}
	}
	return m.StartConnection(ctx)
}

// Close disconnects the client.
func (m *MongoDatabase) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.db = nil
	m.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *MongoDatabase) collection(coll model.Collection) (*mongo.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return m.db.Collection(string(coll)), nil
}

func (m *MongoDatabase) Insert(ctx context.Context, coll model.Collection, docs ...bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	if len(docs) == 1 {
		_, err = c.InsertOne(ctx, docs[0])
		return err
	}
	many := make([]interface{}, len(docs))
	for i, doc := range docs {
		many[i] = doc
	}
	_, err = c.InsertMany(ctx, many)
	return err
}

func (m *MongoDatabase) Delete(ctx context.Context, coll model.Collection, queries ...bson.M) error {
	if len(queries) == 0 {
		return nil
	}
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	for _, query := range queries {
		if _, err := c.DeleteMany(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (m *MongoDatabase) Find(ctx context.Context, coll model.Collection, query bson.M) ([]bson.M, error) {
	c, err := m.collection(coll)
	if err != nil {
		return nil, err
	}
	cursor, err := c.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *MongoDatabase) Update(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error {
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	_, err = c.UpdateMany(ctx, query, bson.M{"$set": bson.M{field: value}})
	return err
}

func (m *MongoDatabase) Unset(ctx context.Context, coll model.Collection, query bson.M, field string) error {
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	_, err = c.UpdateMany(ctx, query, bson.M{"$unset": bson.M{field: ""}})
	return err
}

func (m *MongoDatabase) AddToSet(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error {
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	_, err = c.UpdateMany(ctx, query, bson.M{"$addToSet": bson.M{field: value}})
	return err
}

func (m *MongoDatabase) RemoveFromArray(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error {
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	_, err = c.UpdateMany(ctx, query, bson.M{"$pull": bson.M{field: value}})
	return err
}
