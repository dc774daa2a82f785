package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/model"
)

var sqliteCollections = []model.Collection{
	model.CollectionUsers,
	model.CollectionRoles,
	model.CollectionChannels,
	model.CollectionSettings,
}

// SqliteDatabase stores one JSON document per row, one table per
// collection. It deliberately does not implement SetOperator, so set edits
// go through the GuildDatabase read-modify-write fallback.
type SqliteDatabase struct {
	path string

	mu       sync.Mutex
	inflight *connectAttempt
	db       *sqlx.DB
}

func NewSqliteDatabase(path string) *SqliteDatabase {
	return &SqliteDatabase{path: path}
}

func (s *SqliteDatabase) StartConnection(ctx context.Context) error {
	s.mu.Lock()
	if attempt := s.inflight; attempt != nil {
		s.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := &connectAttempt{done: make(chan struct{})}
	s.inflight = attempt
	s.mu.Unlock()

	attempt.err = s.openWithRetry(ctx)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	close(attempt.done)
	return attempt.err
}

func (s *SqliteDatabase) openWithRetry(ctx context.Context) error {
	var lastErr error
	for i := 0; i <= connectRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(connectDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		db, err := sqlx.Open("sqlite3", s.path)
		if err != nil {
			lastErr = err
			log.Printf("Sqlite open attempt %d failed: %v", i+1, err)
			continue
		}
		if err := s.bootstrap(ctx, db); err != nil {
			lastErr = err
			log.Printf("Sqlite bootstrap attempt %d failed: %v", i+1, err)
			db.Close()
			continue
		}
		s.mu.Lock()
		previous := s.db
		s.db = db
		s.mu.Unlock()
		if previous != nil {
			previous.Close()
		}
		return nil
	}
	return fmt.Errorf("unable to connect to database: %w", lastErr)
}

func (s *SqliteDatabase) bootstrap(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	for _, coll := range sqliteCollections {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL
		);`, coll)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", coll, err)
		}
	}
	return nil
}

func (s *SqliteDatabase) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db != nil {
		if err := db.PingContext(ctx); err == nil {
			return nil
		} else {
			log.Printf("Database unreachable, reconnecting: %v", err)
		}
	}
	return s.StartConnection(ctx)
}

func (s *SqliteDatabase) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (s *SqliteDatabase) handle() (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return s.db, nil
}

func (s *SqliteDatabase) Insert(ctx context.Context, coll model.Collection, docs ...bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (id, document) VALUES (?, ?)", coll)
	for _, doc := range docs {
		encoded, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		id, _ := doc[model.FieldID].(string)
		if _, err := db.ExecContext(ctx, query, id, string(encoded)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SqliteDatabase) Delete(ctx context.Context, coll model.Collection, queries ...bson.M) error {
	if len(queries) == 0 {
		return nil
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	for _, query := range queries {
		docs, err := s.Find(ctx, coll, query)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", coll)
		for _, doc := range docs {
			if _, err := db.ExecContext(ctx, stmt, doc[model.FieldID]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SqliteDatabase) Find(ctx context.Context, coll model.Collection, query bson.M) ([]bson.M, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []string
	if id, ok := query[model.FieldID].(string); ok && len(query) == 1 {
		stmt := fmt.Sprintf("SELECT document FROM %s WHERE id = ?", coll)
		if err := db.SelectContext(ctx, &rows, stmt, id); err != nil {
			return nil, err
		}
	} else {
		stmt := fmt.Sprintf("SELECT document FROM %s", coll)
		if err := db.SelectContext(ctx, &rows, stmt); err != nil {
			return nil, err
		}
	}

	docs := []bson.M{}
	for _, row := range rows {
		var doc bson.M
		if err := json.Unmarshal([]byte(row), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		if matches(doc, query) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *SqliteDatabase) Update(ctx context.Context, coll model.Collection, query bson.M, field string, value interface{}) error {
	return s.rewrite(ctx, coll, query, func(doc bson.M) {
		setPath(doc, field, value)
	})
}

func (s *SqliteDatabase) Unset(ctx context.Context, coll model.Collection, query bson.M, field string) error {
	return s.rewrite(ctx, coll, query, func(doc bson.M) {
		unsetPath(doc, field)
	})
}

// rewrite applies an in-Go document edit to every match. Each row write is
// its own implicit transaction, matching the store contract.
func (s *SqliteDatabase) rewrite(ctx context.Context, coll model.Collection, query bson.M, edit func(bson.M)) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	docs, err := s.Find(ctx, coll, query)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("UPDATE %s SET document = ? WHERE id = ?", coll)
	for _, doc := range docs {
		edit(doc)
		encoded, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		if _, err := db.ExecContext(ctx, stmt, string(encoded), doc[model.FieldID]); err != nil {
			return err
		}
	}
	return nil
}

var _ BaseDatabase = (*SqliteDatabase)(nil)
