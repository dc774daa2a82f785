package actions

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/database"
	"beniyu-bot/model"
)

// RoleToggleAction names the role toggle handler in stored button payloads.
const RoleToggleAction = "roleToggle"

// RoleToggle adds the payload's role to the clicking member, or removes it
// when they already carry it. No message update.
func RoleToggle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, db *database.GuildDatabase, data bson.M) (*discordgo.InteractionResponseData, error) {
	role := model.AsString(data["role"])
	if role == "" {
		return nil, fmt.Errorf("role toggle button without a role payload")
	}
	userID := i.Member.User.ID

	if contains(i.Member.Roles, role) {
		if err := s.GuildMemberRoleRemove(i.GuildID, userID, role); err != nil {
			return nil, fmt.Errorf("failed to remove role %s: %w", role, err)
		}
		return nil, nil
	}
	if err := s.GuildMemberRoleAdd(i.GuildID, userID, role); err != nil {
		return nil, fmt.Errorf("failed to add role %s: %w", role, err)
	}
	return nil, nil
}
