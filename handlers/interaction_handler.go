package handlers

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"beniyu-bot/bot"
	"beniyu-bot/permissions"
	"beniyu-bot/utils"
)

const interactionTimeout = 30 * time.Second

func interactionHandler(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleCommand(ctx, b, s, i)
		case discordgo.InteractionMessageComponent:
			handleButton(ctx, b, s, i)
		}
	}
}

// handleCommand gates a slash command on channel enablement and the
// caller's "command.use" grant, then dispatches. A "command.bypass" grant
// overrides a channel where the command is not enabled.
func handleCommand(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	name := i.ApplicationCommandData().Name
	actor := permissions.Actor{UserID: i.Member.User.ID, RoleIDs: i.Member.Roles}

	enabled, err := b.Resolver.CheckChannelPermission(ctx, name, i.ChannelID, parentChannelID(s, i.ChannelID))
	if err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "command "+name, err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
		return
	}
	if !enabled {
		bypass, err := b.Resolver.CheckPermission(ctx, "command.bypass."+name, actor)
		if err != nil {
			utils.LogError(s, b.Config.LogChannelID, "handlers", "command "+name, err.Error())
			utils.PrivateResponse(s, i, utils.InternalErrorMessage)
			return
		}
		if !bypass {
			utils.PrivateResponse(s, i, utils.NotEnabledMessage)
			return
		}
	}

	allowed, err := b.Resolver.CheckPermission(ctx, "command.use."+name, actor)
	if err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "command "+name, err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
		return
	}
	if !allowed {
		utils.PrivateResponse(s, i, utils.NotPermittedMessage)
		return
	}

	handler, ok := commandHandlers[name]
	if !ok {
		utils.LogWarn(s, b.Config.LogChannelID, "handlers", "command "+name, "no handler registered")
		return
	}
	if err := handler(ctx, b, s, i); err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "command "+name, err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
	}
}

// parentChannelID resolves the category a channel sits in, so commands
// enabled on a category apply to its children. Unresolvable channels
// contribute no parent.
func parentChannelID(s *discordgo.Session, channelID string) string {
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			return ""
		}
	}
	return channel.ParentID
}
