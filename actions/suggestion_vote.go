package actions

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/database"
	"beniyu-bot/model"
)

// SuggestionVoteAction names the vote handler in stored button payloads.
const SuggestionVoteAction = "suggestionVote"

// Payload fields of a suggestion vote button.
const (
	voteAgree    = "agree"
	voteDisagree = "disagree"
)

// SuggestionVote records an agree/disagree vote. A voter is kept in at most
// one of the two sets; a repeated identical vote is a no-op.
func SuggestionVote(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, db *database.GuildDatabase, data bson.M) (*discordgo.InteractionResponseData, error) {
	userID := i.Member.User.ID
	vote := model.AsString(data[model.ButtonDataCustomID])
	agree := model.AsStringSlice(data[voteAgree])
	disagree := model.AsStringSlice(data[voteDisagree])

	switch vote {
	case voteAgree:
		if contains(agree, userID) {
			return nil, nil
		}
		disagree = remove(disagree, userID)
		agree = append(agree, userID)
	case voteDisagree:
		if contains(disagree, userID) {
			return nil, nil
		}
		agree = remove(agree, userID)
		disagree = append(disagree, userID)
	default:
		return nil, fmt.Errorf("unknown vote %q", vote)
	}

	button := model.NewActionButton(SuggestionVoteAction, bson.M{
		voteAgree:    agree,
		voteDisagree: disagree,
	})
	field := model.FieldButtons + "." + i.Message.ID
	if err := db.SetItemProperty(ctx, model.NewChannelItem(i.ChannelID), field, button.Document()); err != nil {
		return nil, fmt.Errorf("failed to persist vote: %w", err)
	}

	return &discordgo.InteractionResponseData{
		Components: []discordgo.MessageComponent{VoteButtons(len(agree), len(disagree))},
	}, nil
}

// VoteButtons builds the agree/disagree row with live tallies. The suggest
// command uses it for the initial message as well.
func VoteButtons(agreeCount, disagreeCount int) discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    fmt.Sprintf("Agree (%d)", agreeCount),
				Style:    discordgo.SuccessButton,
				CustomID: voteAgree,
			},
			discordgo.Button{
				Label:    fmt.Sprintf("Disagree (%d)", disagreeCount),
				Style:    discordgo.DangerButton,
				CustomID: voteDisagree,
			},
		},
	}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func remove(values []string, target string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value != target {
			out = append(out, value)
		}
	}
	return out
}
