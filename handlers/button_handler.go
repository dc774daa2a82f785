package handlers

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"beniyu-bot/bot"
	"beniyu-bot/model"
	"beniyu-bot/permissions"
	"beniyu-bot/utils"
)

// handleButton resolves a component click against the buttons stored on
// the channel record. Only clicks on the bot's own messages are honored,
// and the caller needs the action's "button.action" grant. The stored
// payload, with the clicked component's custom ID merged in, is handed to
// the registered action handler.
func handleButton(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil || i.Message == nil {
		return
	}
	if i.Message.Author == nil || i.Message.Author.ID != s.State.User.ID {
		return
	}

	records, err := b.DB.GetItem(ctx, model.NewChannelItem(i.ChannelID))
	if err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "button lookup", err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
		return
	}
	if len(records) == 0 {
		return
	}
	channel, ok := records[0].(*model.ChannelItem)
	if !ok {
		return
	}
	button, ok := channel.Buttons[i.Message.ID]
	if !ok || button.Type != model.ButtonTypeAction {
		return
	}

	name := button.Name()
	actor := permissions.Actor{UserID: i.Member.User.ID, RoleIDs: i.Member.Roles}
	allowed, err := b.Resolver.CheckPermission(ctx, "button.action."+name, actor)
	if err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "button "+name, err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
		return
	}
	if !allowed {
		utils.PrivateResponse(s, i, utils.NotPermittedMessage)
		return
	}

	handler, ok := b.Actions.Get(name)
	if !ok {
		utils.LogWarn(s, b.Config.LogChannelID, "handlers", "button "+name, "no action registered")
		return
	}

	data := model.AsDocument(button.Data)
	data[model.ButtonDataCustomID] = i.MessageComponentData().CustomID

	update, err := handler(ctx, s, i, b.DB, data)
	if err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "button "+name, err.Error())
		utils.PrivateResponse(s, i, utils.InternalErrorMessage)
		return
	}

	// A nil update still needs an acknowledgement or the client shows a
	// failed interaction.
	response := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	if update != nil {
		response = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: update,
		}
	}
	if err := s.InteractionRespond(i.Interaction, response); err != nil {
		utils.LogError(s, b.Config.LogChannelID, "handlers", "button "+name, err.Error())
	}
}
