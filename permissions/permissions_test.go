package permissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/database"
	"beniyu-bot/model"
)

func TestGetAllPermissions(t *testing.T) {
	cases := []struct {
		permission string
		expected   []string
	}{
		{
			permission: "command.use.test",
			expected:   []string{"*", "command.*", "command.use.*", "command.use.test"},
		},
		{
			permission: "ping",
			expected:   []string{"*", "ping"},
		},
		{
			permission: "",
			expected:   []string{"*", ""},
		},
		{
			permission: "...",
			expected:   []string{"*", ".*", "..*", "...*", "..."},
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, GetAllPermissions(tc.permission), "expansion of %q", tc.permission)
	}
}

func TestGetAllPermissionsLength(t *testing.T) {
	// n segments expand to n+1 scopes: the universal wildcard, one
	// wildcard per non-final prefix, and the literal string.
	for _, permission := range []string{"a", "a.b", "a.b.c", "a.b.c.d.e"} {
		segments := 1
		for _, r := range permission {
			if r == '.' {
				segments++
			}
		}
		assert.Len(t, GetAllPermissions(permission), segments+1)
	}
}

func newTestResolver(t *testing.T, ownerID string) (*Resolver, *database.GuildDatabase) {
	t.Helper()
	db := database.NewGuildDatabase(database.NewMemoryDatabase())
	require.NoError(t, db.Connect(context.Background()))
	return NewResolver(db, ownerID), db
}

func TestOwnerBypass(t *testing.T) {
	resolver, db := newTestResolver(t, "owner")

	ok, err := resolver.CheckPermission(context.Background(), "anything.at.all", Actor{UserID: "owner"})
	require.NoError(t, err)
	assert.True(t, ok)

	// The bypass is decided before storage, so no record is healed.
	records, err := db.GetItem(context.Background(), model.NewUserItem("owner"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUniversalWildcardGrantsEverything(t *testing.T) {
	resolver, db := newTestResolver(t, "")
	user := model.EmptyUserItem("u1")
	user.Perms = []string{"*"}
	require.NoError(t, db.AddItem(context.Background(), user))

	for _, permission := range []string{"command.use.ping", "button.action.vote", "x", ""} {
		ok, err := resolver.CheckPermission(context.Background(), permission, Actor{UserID: "u1"})
		require.NoError(t, err)
		assert.True(t, ok, "permission %q", permission)
	}
}

func TestRoleWildcardGrant(t *testing.T) {
	resolver, db := newTestResolver(t, "")
	role := model.EmptyRoleItem("mods")
	role.Perms = []string{"command.*"}
	require.NoError(t, db.AddItem(context.Background(), role))
	require.NoError(t, db.AddItem(context.Background(), model.EmptyUserItem("u1")))

	actor := Actor{UserID: "u1", RoleIDs: []string{"mods"}}

	ok, err := resolver.CheckPermission(context.Background(), "command.use.test", actor)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.CheckPermission(context.Background(), "button.action.vote", actor)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLiteralGrantDoesNotWiden(t *testing.T) {
	resolver, db := newTestResolver(t, "")
	user := model.EmptyUserItem("u1")
	user.Perms = []string{"command.use"}
	require.NoError(t, db.AddItem(context.Background(), user))

	// A literal grant is not a prefix grant.
	ok, err := resolver.CheckPermission(context.Background(), "command.use.test", Actor{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = resolver.CheckPermission(context.Background(), "command.use", Actor{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMissingRecordFailsClosedAndHeals(t *testing.T) {
	resolver, db := newTestResolver(t, "")
	actor := Actor{UserID: "u1", RoleIDs: []string{"ghost"}}

	ok, err := resolver.CheckPermission(context.Background(), "command.use.test", actor)
	require.NoError(t, err)
	assert.False(t, ok)

	// Default records appear in the background.
	require.Eventually(t, func() bool {
		roles, err := db.GetItem(context.Background(), model.NewRoleItem("ghost"))
		if err != nil || len(roles) != 1 {
			return false
		}
		users, err := db.GetItem(context.Background(), model.NewUserItem("u1"))
		return err == nil && len(users) == 1
	}, time.Second, 5*time.Millisecond)

	// The healed records are empty, so the check still denies.
	ok, err = resolver.CheckPermission(context.Background(), "command.use.test", actor)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChannelPermission(t *testing.T) {
	resolver, db := newTestResolver(t, "")
	channel := model.EmptyChannelItem("general")
	channel.AllowedCommands = []string{"ping"}
	require.NoError(t, db.AddItem(context.Background(), channel))

	ok, err := resolver.CheckChannelPermission(context.Background(), "ping", "general")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.CheckChannelPermission(context.Background(), "suggest", "general")
	require.NoError(t, err)
	assert.False(t, ok)

	// A parent category with the command enabled covers its children.
	category := model.EmptyChannelItem("category")
	category.AllowedCommands = []string{"suggest"}
	require.NoError(t, db.AddItem(context.Background(), category))

	ok, err = resolver.CheckChannelPermission(context.Background(), "suggest", "general", "category")
	require.NoError(t, err)
	assert.True(t, ok)
}

// brokenDatabase fails every operation even after reconnecting.
type brokenDatabase struct {
	database.MemoryDatabase
}

func (b *brokenDatabase) Find(ctx context.Context, coll model.Collection, query bson.M) ([]bson.M, error) {
	return nil, errors.New("storage unreachable")
}

func TestStorageErrorPropagates(t *testing.T) {
	db := database.NewGuildDatabase(&brokenDatabase{})
	resolver := NewResolver(db, "")

	_, err := resolver.CheckPermission(context.Background(), "command.use.test", Actor{UserID: "u1"})
	assert.Error(t, err)
}
