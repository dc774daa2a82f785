package database

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Dotted-path helpers for backends that edit documents in Go rather than in
// the store (sqlite, memory). Mongo resolves these paths natively.

func setPath(doc bson.M, path string, value interface{}) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(bson.M)
		if !ok {
			next = bson.M{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

func unsetPath(doc bson.M, path string) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(bson.M)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}

func lookupPath(doc bson.M, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(bson.M)
		if !ok {
			return nil, false
		}
		current = next
	}
	value, ok := current[segments[len(segments)-1]]
	return value, ok
}

// matches reports whether every field of the query equals the document's
// top-level value. An empty query matches everything.
func matches(doc bson.M, query bson.M) bool {
	for field, want := range query {
		got, ok := doc[field]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func cloneDocument(doc bson.M) bson.M {
	out := bson.M{}
	for key, value := range doc {
		if nested, ok := value.(bson.M); ok {
			out[key] = cloneDocument(nested)
			continue
		}
		out[key] = value
	}
	return out
}
