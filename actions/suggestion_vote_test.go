package actions

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/database"
	"beniyu-bot/model"
)

func voteInteraction(userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ChannelID: "c1",
			Member:    &discordgo.Member{User: &discordgo.User{ID: userID}},
			Message:   &discordgo.Message{ID: "m1"},
		},
	}
}

func storedVotes(t *testing.T, db *database.GuildDatabase) (agree, disagree []string) {
	t.Helper()
	channels, err := db.GetChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	button, ok := channels[0].Buttons["m1"]
	require.True(t, ok)
	return model.AsStringSlice(button.Data[voteAgree]), model.AsStringSlice(button.Data[voteDisagree])
}

func TestSuggestionVote(t *testing.T) {
	db := database.NewGuildDatabase(database.NewMemoryDatabase())
	require.NoError(t, db.Connect(context.Background()))
	channel := model.EmptyChannelItem("c1")
	channel.Buttons["m1"] = model.NewActionButton(SuggestionVoteAction, bson.M{
		voteAgree:    []string{},
		voteDisagree: []string{},
	})
	require.NoError(t, db.AddItem(context.Background(), channel))

	payload := func(agree, disagree []string, vote string) bson.M {
		return bson.M{
			model.ButtonDataName:     SuggestionVoteAction,
			model.ButtonDataCustomID: vote,
			voteAgree:                agree,
			voteDisagree:             disagree,
		}
	}

	// First vote lands in the agree set.
	update, err := SuggestionVote(context.Background(), nil, voteInteraction("u1"), db, payload([]string{}, []string{}, voteAgree))
	require.NoError(t, err)
	require.NotNil(t, update)
	agree, disagree := storedVotes(t, db)
	assert.Equal(t, []string{"u1"}, agree)
	assert.Empty(t, disagree)

	// A repeated identical vote changes nothing and returns no update.
	update, err = SuggestionVote(context.Background(), nil, voteInteraction("u1"), db, payload(agree, disagree, voteAgree))
	require.NoError(t, err)
	assert.Nil(t, update)

	// Switching sides moves the voter between the sets.
	update, err = SuggestionVote(context.Background(), nil, voteInteraction("u1"), db, payload(agree, disagree, voteDisagree))
	require.NoError(t, err)
	require.NotNil(t, update)
	agree, disagree = storedVotes(t, db)
	assert.Empty(t, agree)
	assert.Equal(t, []string{"u1"}, disagree)
}

func TestSuggestionVoteUnknownCustomID(t *testing.T) {
	db := database.NewGuildDatabase(database.NewMemoryDatabase())
	require.NoError(t, db.Connect(context.Background()))

	_, err := SuggestionVote(context.Background(), nil, voteInteraction("u1"), db, bson.M{
		model.ButtonDataCustomID: "bogus",
	})
	assert.Error(t, err)
}

func TestVoteButtonsTallies(t *testing.T) {
	row := VoteButtons(3, 1)
	require.Len(t, row.Components, 2)
	agree := row.Components[0].(discordgo.Button)
	disagree := row.Components[1].(discordgo.Button)
	assert.Equal(t, "Agree (3)", agree.Label)
	assert.Equal(t, "Disagree (1)", disagree.Label)
}
