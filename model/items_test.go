package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUserItemRoundTrip(t *testing.T) {
	user := EmptyUserItem("u1")
	user.Perms = []string{"command.*"}

	imported := user.Import(user.Document()).(*UserItem)
	assert.Equal(t, "u1", imported.DocID)
	assert.Equal(t, []string{"command.*"}, imported.Perms)
}

func TestUserItemImportDriverShapes(t *testing.T) {
	// Drivers hand arrays back as bson.A or []interface{} depending on
	// the decode path.
	doc := bson.M{
		FieldID:          "u1",
		FieldPermissions: bson.A{"a", "b"},
	}
	imported := (&UserItem{}).Import(doc).(*UserItem)
	assert.Equal(t, []string{"a", "b"}, imported.Perms)

	doc[FieldPermissions] = []interface{}{"c"}
	imported = (&UserItem{}).Import(doc).(*UserItem)
	assert.Equal(t, []string{"c"}, imported.Perms)
}

func TestChannelItemDefaults(t *testing.T) {
	channel := EmptyChannelItem("c1")
	assert.True(t, channel.AnonymousSuggestions)
	assert.Empty(t, channel.AllowedCommands)
	assert.Empty(t, channel.Buttons)

	// A document without the anonymity field reads as allowed.
	imported := (&ChannelItem{}).Import(bson.M{FieldID: "c1"}).(*ChannelItem)
	assert.True(t, imported.AnonymousSuggestions)

	imported = (&ChannelItem{}).Import(bson.M{FieldID: "c1", FieldAnonymousSuggestions: false}).(*ChannelItem)
	assert.False(t, imported.AnonymousSuggestions)
}

func TestChannelItemButtonsRoundTrip(t *testing.T) {
	channel := EmptyChannelItem("c1")
	channel.Buttons["m1"] = NewActionButton("suggestionVote", bson.M{
		"agree":    []string{"u1"},
		"disagree": []string{},
	})
	channel.SuggestionChannel = "c2"

	imported := channel.Import(channel.Document()).(*ChannelItem)
	require.Contains(t, imported.Buttons, "m1")
	button := imported.Buttons["m1"]
	assert.Equal(t, ButtonTypeAction, button.Type)
	assert.Equal(t, "suggestionVote", button.Name())
	assert.Equal(t, []string{"u1"}, AsStringSlice(button.Data["agree"]))
	assert.Equal(t, "c2", imported.SuggestionChannel)
}

func TestSettingsItemRoundTrip(t *testing.T) {
	settings := NewSettingsItem("suggestions")
	settings.Data = bson.M{"responseChannel": "c9"}

	imported := settings.Import(settings.Document()).(*SettingsItem)
	assert.Equal(t, "suggestions", imported.DocID)
	assert.Equal(t, "c9", AsString(imported.Data["responseChannel"]))
}

func TestNewActionButtonMergesPayload(t *testing.T) {
	button := NewActionButton("roleToggle", bson.M{"role": "r1"})
	assert.Equal(t, ButtonTypeAction, button.Type)
	assert.Equal(t, "roleToggle", button.Name())
	assert.Equal(t, "r1", AsString(button.Data["role"]))
}

func TestAsStringSliceForeignTypes(t *testing.T) {
	assert.Empty(t, AsStringSlice(nil))
	assert.Empty(t, AsStringSlice(42))
	assert.Equal(t, []string{"a"}, AsStringSlice([]interface{}{"a", 1}))
}
