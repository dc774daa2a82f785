package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/calendar"
	"beniyu-bot/database"
	"beniyu-bot/model"
)

type fakeRoster struct {
	users    []string
	roles    []string
	channels []string

	nonText  map[string]bool
	messages map[string]bool // channelID/messageID -> exists
	events   []calendar.Event
}

func (f *fakeRoster) FetchMembers(ctx context.Context) ([]string, error)  { return f.users, nil }
func (f *fakeRoster) FetchRoles(ctx context.Context) ([]string, error)    { return f.roles, nil }
func (f *fakeRoster) FetchChannels(ctx context.Context) ([]string, error) { return f.channels, nil }

func (f *fakeRoster) ChannelIsText(ctx context.Context, channelID string) bool {
	return !f.nonText[channelID]
}

func (f *fakeRoster) MessageExists(ctx context.Context, channelID, messageID string) bool {
	return f.messages[channelID+"/"+messageID]
}

func (f *fakeRoster) FetchScheduledEvents(ctx context.Context) ([]calendar.Event, error) {
	return f.events, nil
}

type fakeCalendar struct {
	authorized bool
	upcoming   []calendar.Event

	created []string
	deleted []string
}

func (f *fakeCalendar) Authorized() bool { return f.authorized }

func (f *fakeCalendar) ListUpcoming(ctx context.Context) ([]calendar.Event, error) {
	return f.upcoming, nil
}

func (f *fakeCalendar) Create(ctx context.Context, event calendar.Event) error {
	f.created = append(f.created, event.ID)
	return nil
}

func (f *fakeCalendar) Update(ctx context.Context, event calendar.Event) error { return nil }

func (f *fakeCalendar) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestDB(t *testing.T) *database.GuildDatabase {
	t.Helper()
	db := database.NewGuildDatabase(database.NewMemoryDatabase())
	require.NoError(t, db.Connect(context.Background()))
	return db
}

func TestRosterReconciliation(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AddItem(context.Background(),
		model.EmptyUserItem("2"), model.EmptyUserItem("3"), model.EmptyUserItem("4")))

	roster := &fakeRoster{
		users: []string{"1", "2", "3"},
		roles: []string{"9"},
	}
	syncer := New(db, roster, nil)

	_, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)

	users, roles, err := db.GetUsersAndRoles(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, users)
	assert.ElementsMatch(t, []string{"9"}, roles)
}

func TestRosterReconciliationPreservesSurvivors(t *testing.T) {
	db := newTestDB(t)
	survivor := model.EmptyUserItem("2")
	survivor.Perms = []string{"command.*"}
	require.NoError(t, db.AddItem(context.Background(), survivor))

	roster := &fakeRoster{users: []string{"1", "2"}}
	syncer := New(db, roster, nil)

	_, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)

	// A record present on both sides keeps its stored state.
	records, err := db.GetItem(context.Background(), model.NewUserItem("2"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"command.*"}, records[0].(*model.UserItem).Perms)
}

func TestRosterReconciliationIdempotent(t *testing.T) {
	db := newTestDB(t)
	roster := &fakeRoster{
		users:    []string{"1", "2"},
		roles:    []string{"9"},
		channels: []string{"c1"},
	}
	syncer := New(db, roster, nil)

	_, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)
	_, err = syncer.Synchronize(context.Background())
	require.NoError(t, err)

	users, roles, err := db.GetUsersAndRoles(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, users)
	assert.ElementsMatch(t, []string{"9"}, roles)

	channels, err := db.GetChannels(context.Background())
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestDanglingButtonCleanup(t *testing.T) {
	db := newTestDB(t)
	channel := model.EmptyChannelItem("c1")
	channel.Buttons = map[string]model.Button{
		"a": model.NewActionButton("roleToggle", bson.M{"role": "r1"}),
		"b": model.NewActionButton("roleToggle", bson.M{"role": "r2"}),
	}
	require.NoError(t, db.AddItem(context.Background(), channel))

	roster := &fakeRoster{
		channels: []string{"c1"},
		messages: map[string]bool{"c1/a": true},
	}
	syncer := New(db, roster, nil)

	_, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)

	channels, err := db.GetChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Contains(t, channels[0].Buttons, "a")
	assert.NotContains(t, channels[0].Buttons, "b")
}

func TestButtonCleanupSkipsNonTextChannels(t *testing.T) {
	db := newTestDB(t)
	channel := model.EmptyChannelItem("voice")
	channel.Buttons = map[string]model.Button{
		"a": model.NewActionButton("roleToggle", bson.M{"role": "r1"}),
	}
	require.NoError(t, db.AddItem(context.Background(), channel))

	roster := &fakeRoster{
		channels: []string{"voice"},
		nonText:  map[string]bool{"voice": true},
	}
	syncer := New(db, roster, nil)

	_, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)

	channels, err := db.GetChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Contains(t, channels[0].Buttons, "a")
}

func TestCalendarSkippedWhenUnauthorized(t *testing.T) {
	db := newTestDB(t)
	cal := &fakeCalendar{authorized: false}
	syncer := New(db, &fakeRoster{}, cal)

	result, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)
	assert.False(t, result.CalendarOK)
	assert.Empty(t, cal.created)
	assert.Empty(t, cal.deleted)
}

func TestCalendarDiff(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	roster := &fakeRoster{
		events: []calendar.Event{
			{ID: "e1", Title: "Meeting", Start: now, End: now.Add(time.Hour)},
			{ID: "e2", Title: "Game night", Start: now, End: now.Add(time.Hour)},
		},
	}
	cal := &fakeCalendar{
		authorized: true,
		upcoming: []calendar.Event{
			{ID: "e2"},
			{ID: "e3"},
		},
	}
	syncer := New(db, roster, cal)

	result, err := syncer.Synchronize(context.Background())
	require.NoError(t, err)
	assert.True(t, result.CalendarOK)
	assert.Equal(t, []string{"e1"}, cal.created)
	assert.Equal(t, []string{"e3"}, cal.deleted)
}

func TestScheduledEventToCalendar(t *testing.T) {
	start := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	event := ScheduledEventToCalendar(&discordgo.GuildScheduledEvent{
		ID:                 "e1",
		Name:               "Game night",
		Description:        "Bring snacks",
		ScheduledStartTime: start,
		ScheduledEndTime:   &end,
		EntityMetadata:     discordgo.GuildScheduledEventEntityMetadata{Location: "Common room"},
	})
	assert.Equal(t, "e1", event.ID)
	assert.Equal(t, "Game night", event.Title)
	assert.Equal(t, "Common room", event.Location)
	assert.Equal(t, end, event.End)

	// No explicit end or location: one hour default, empty location.
	event = ScheduledEventToCalendar(&discordgo.GuildScheduledEvent{
		ID:                 "e2",
		ScheduledStartTime: start,
	})
	assert.Equal(t, start.Add(time.Hour), event.End)
	assert.Empty(t, event.Location)
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"1"}, missing([]string{"1", "2", "3"}, []string{"2", "3", "4"}))
	assert.Equal(t, []string{"4"}, missing([]string{"2", "3", "4"}, []string{"1", "2", "3"}))
	assert.Empty(t, missing([]string{"1"}, []string{"1"}))
	assert.Empty(t, missing(nil, []string{"1"}))
}
