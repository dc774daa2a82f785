// Package calendar is the external calendar collaborator boundary. The
// syncer only consumes the Calendar interface; authorization state is a
// boolean gate, not an error.
package calendar

import (
	"context"
	"time"
)

// Event is the storage-neutral view of one scheduled event.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Calendar is the operation surface the bot needs from an external
// calendar.
type Calendar interface {
	// Authorized reports whether calls are expected to succeed. Callers
	// check it before every sync attempt.
	Authorized() bool
	ListUpcoming(ctx context.Context) ([]Event, error)
	Create(ctx context.Context, event Event) error
	Update(ctx context.Context, event Event) error
	Delete(ctx context.Context, id string) error
}
