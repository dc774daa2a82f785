// Package syncer reconciles the live guild roster with the persisted
// mirror and garbage-collects stored button references whose messages are
// gone.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"beniyu-bot/calendar"
	"beniyu-bot/database"
	"beniyu-bot/model"
)

// RosterProvider is the authoritative source of guild identifiers. The
// syncer only consumes identifiers and existence, never payload shape.
type RosterProvider interface {
	FetchMembers(ctx context.Context) ([]string, error)
	FetchRoles(ctx context.Context) ([]string, error)
	FetchChannels(ctx context.Context) ([]string, error)

	// ChannelIsText reports whether the channel still exists and can
	// hold messages.
	ChannelIsText(ctx context.Context, channelID string) bool

	// MessageExists reports whether the message can still be fetched. A
	// transient fetch failure reads as missing, which is acceptable:
	// cleanup is at-least-once and a button whose state cannot be read
	// is unusable anyway.
	MessageExists(ctx context.Context, channelID, messageID string) bool

	FetchScheduledEvents(ctx context.Context) ([]calendar.Event, error)
}

// Result reports the outcome of one synchronization run.
type Result struct {
	// CalendarOK is false when calendar sync was skipped for lack of
	// authorization. That is an expected operating condition, not an
	// error.
	CalendarOK bool
}

// Syncer drives the reconciliation phases. Runs may interleave; no mutual
// exclusion is provided across concurrent Synchronize calls, which is
// accepted at the expected invocation frequency.
type Syncer struct {
	db     *database.GuildDatabase
	roster RosterProvider
	cal    calendar.Calendar
}

func New(db *database.GuildDatabase, roster RosterProvider, cal calendar.Calendar) *Syncer {
	return &Syncer{db: db, roster: roster, cal: cal}
}

type rosterData struct {
	users    []string
	roles    []string
	channels []string
}

// Synchronize runs the full reconciliation: the roster diff, then the
// dangling-button cleanup, then calendar sync when authorized. The button
// pass never starts before every diff operation has settled.
func (s *Syncer) Synchronize(ctx context.Context) (Result, error) {
	result := Result{}

	if err := s.synchronizeRoster(ctx); err != nil {
		return result, err
	}
	if err := s.cleanDanglingButtons(ctx); err != nil {
		return result, err
	}

	calOK, err := s.synchronizeCalendar(ctx)
	result.CalendarOK = calOK
	return result, err
}

// synchronizeRoster fetches the live and mirrored rosters concurrently,
// then applies the per-kind identifier diffs, inserts and deletes running
// concurrently across all three kinds.
func (s *Syncer) synchronizeRoster(ctx context.Context) error {
	var remote, local rosterData
	var remoteErr, localErr error

	var fetch sync.WaitGroup
	fetch.Add(2)
	go func() {
		defer fetch.Done()
		remote, remoteErr = s.fetchRemote(ctx)
	}()
	go func() {
		defer fetch.Done()
		local, localErr = s.fetchMirror(ctx)
	}()
	fetch.Wait()
	if remoteErr != nil {
		return fmt.Errorf("failed to fetch live roster: %w", remoteErr)
	}
	if localErr != nil {
		return fmt.Errorf("failed to fetch mirror: %w", localErr)
	}

	type kindDiff struct {
		inserts []model.GuildItem
		deletes []model.GuildItem
	}
	diffs := []kindDiff{
		{
			inserts: asItems(missing(remote.users, local.users), model.EmptyUserItem),
			deletes: asItems(missing(local.users, remote.users), model.NewUserItem),
		},
		{
			inserts: asItems(missing(remote.roles, local.roles), model.EmptyRoleItem),
			deletes: asItems(missing(local.roles, remote.roles), model.NewRoleItem),
		},
		{
			inserts: asItems(missing(remote.channels, local.channels), model.EmptyChannelItem),
			deletes: asItems(missing(local.channels, remote.channels), model.NewChannelItem),
		},
	}

	var apply sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for _, diff := range diffs {
		inserts, deletes := diff.inserts, diff.deletes
		apply.Add(2)
		go func() {
			defer apply.Done()
			record(s.db.AddItem(ctx, inserts...))
		}()
		go func() {
			defer apply.Done()
			record(s.db.DeleteItem(ctx, deletes...))
		}()
	}
	apply.Wait()
	return firstErr
}

func (s *Syncer) fetchRemote(ctx context.Context) (rosterData, error) {
	var data rosterData
	var err error
	if data.users, err = s.roster.FetchMembers(ctx); err != nil {
		return data, err
	}
	if data.roles, err = s.roster.FetchRoles(ctx); err != nil {
		return data, err
	}
	if data.channels, err = s.roster.FetchChannels(ctx); err != nil {
		return data, err
	}
	return data, nil
}

func (s *Syncer) fetchMirror(ctx context.Context) (rosterData, error) {
	var data rosterData
	var err error
	if data.users, data.roles, err = s.db.GetUsersAndRoles(ctx); err != nil {
		return data, err
	}
	channels, err := s.db.GetChannels(ctx)
	if err != nil {
		return data, err
	}
	for _, channel := range channels {
		data.channels = append(data.channels, channel.DocID)
	}
	return data, nil
}

// cleanDanglingButtons removes stored button entries whose messages no
// longer exist. Channels that are gone or no longer text-capable are
// skipped; the roster diff deletes their records on the next run.
func (s *Syncer) cleanDanglingButtons(ctx context.Context) error {
	channels, err := s.db.GetChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mirrored channels: %w", err)
	}

	var wg sync.WaitGroup
	for _, channel := range channels {
		channel := channel
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.roster.ChannelIsText(ctx, channel.DocID) {
				return
			}
			var buttons sync.WaitGroup
			for messageID := range channel.Buttons {
				messageID := messageID
				buttons.Add(1)
				go func() {
					defer buttons.Done()
					if s.roster.MessageExists(ctx, channel.DocID, messageID) {
						return
					}
					field := model.FieldButtons + "." + messageID
					if err := s.db.UnsetItemProperty(ctx, model.NewChannelItem(channel.DocID), field); err != nil {
						log.Printf("Failed to drop dangling button %s in channel %s: %v", messageID, channel.DocID, err)
					}
				}()
			}
			buttons.Wait()
		}()
	}
	wg.Wait()
	return nil
}

// synchronizeCalendar diffs guild scheduled events against the external
// calendar by identifier. Skipped entirely, with a false flag, when the
// calendar is not authorized.
func (s *Syncer) synchronizeCalendar(ctx context.Context) (bool, error) {
	if s.cal == nil || !s.cal.Authorized() {
		log.Println("Calendar not authorized, skipping calendar synchronization.")
		return false, nil
	}

	localEvents, err := s.roster.FetchScheduledEvents(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to fetch scheduled events: %w", err)
	}
	upcoming, err := s.cal.ListUpcoming(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to list calendar events: %w", err)
	}

	known := make(map[string]struct{}, len(upcoming))
	for _, event := range upcoming {
		known[event.ID] = struct{}{}
	}
	local := make(map[string]struct{}, len(localEvents))
	for _, event := range localEvents {
		local[event.ID] = struct{}{}
	}

	for _, event := range localEvents {
		if _, ok := known[event.ID]; ok {
			continue
		}
		if err := s.cal.Create(ctx, event); err != nil {
			return true, fmt.Errorf("failed to create calendar event %s: %w", event.ID, err)
		}
	}
	for _, event := range upcoming {
		if _, ok := local[event.ID]; ok {
			continue
		}
		if err := s.cal.Delete(ctx, event.ID); err != nil {
			return true, fmt.Errorf("failed to delete calendar event %s: %w", event.ID, err)
		}
	}
	return true, nil
}

// missing returns the elements of a that are absent from b.
func missing(a, b []string) []string {
	present := make(map[string]struct{}, len(b))
	for _, id := range b {
		present[id] = struct{}{}
	}
	out := []string{}
	for _, id := range a {
		if _, ok := present[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func asItems[T model.GuildItem](ids []string, build func(string) T) []model.GuildItem {
	items := make([]model.GuildItem, len(ids))
	for i, id := range ids {
		items[i] = build(id)
	}
	return items
}
