package database

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/model"
)

// MemoryDatabase is a map-backed BaseDatabase used by tests and as a
// reference for the fallback (non-SetOperator) path. Documents are keyed by
// their _id within each collection.
type MemoryDatabase struct {
	mu    sync.RWMutex
	colls map[model.Collection]map[string]bson.M
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{colls: map[model.Collection]map[string]bson.M{}}
}

func (m *MemoryDatabase) StartConnection(ctx context.Context) error { return nil }
func (m *MemoryDatabase) Reconnect(ctx context.Context) error       { return nil }

// collection lazily creates the per-collection map. Callers must hold the
// write lock; read paths use m.colls directly.
func (m *MemoryDatabase) collection(coll model.Collection) map[string]bson.M {
	if m.colls[coll] == nil {
		m.colls[coll] = map[string]bson.M{}
	}
	return m.colls[coll]
}

func (m *MemoryDatabase) Insert(ctx context.Context, coll model.Collection, docs ...bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(coll)
	for _, doc := range docs {
		id, _ := doc[model.FieldID].(string)
		c[id] = cloneDocument(doc)
	}
	return nil
}

func (m *MemoryDatabase) Delete(ctx context.Context, coll model.Collection, queries ...bson.M) error {
	if len(queries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(coll)
	for _, query := range queries {
		for id, doc := range c {
			if matches(doc, query) {
				delete(c, id)
			}
		}
	}
	return nil
}

func (m *MemoryDatabase) Find(ctx context.Context, coll model.Collection, query bson.M) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := []bson.M{}
	for _, doc := range m.colls[coll] {
		if matches(doc, query) {
			docs = append(docs, cloneDocument(doc))
		}
	}
	return docs, nil
}

func (m *MemoryDatabase) Update(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.collection(coll) {
		if matches(doc, query) {
			setPath(doc, field, value)
		}
	}
	return nil
}

func (m *MemoryDatabase) Unset(ctx context.Context, coll model.Collection, query bson.M, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.collection(coll) {
		if matches(doc, query) {
			unsetPath(doc, field)
		}
	}
	return nil
}

var _ BaseDatabase = (*MemoryDatabase)(nil)
