package handlers

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"beniyu-bot/bot"
	"beniyu-bot/model"
	"beniyu-bot/syncer"
	"beniyu-bot/utils"
)

// Roster events mirror upstream changes as they happen, so the periodic
// synchronize only has to repair drift.

func guildMemberAddHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	return func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.AddItem(ctx, model.EmptyUserItem(m.User.ID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "member add", err.Error())
		}
	}
}

// Mirror deletion is best effort: one attempt, logged on failure. The next
// synchronize sweeps anything left behind.
func guildMemberRemoveHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	return func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.DeleteItem(ctx, model.NewUserItem(m.User.ID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "member remove", err.Error())
		}
	}
}

func guildRoleCreateHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
	return func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.AddItem(ctx, model.EmptyRoleItem(r.Role.ID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "role create", err.Error())
		}
	}
}

func guildRoleDeleteHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
	return func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.DeleteItem(ctx, model.NewRoleItem(r.RoleID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "role delete", err.Error())
		}
	}
}

func channelCreateHandler(b *bot.Bot) func(s *discordgo.Session, c *discordgo.ChannelCreate) {
	return func(s *discordgo.Session, c *discordgo.ChannelCreate) {
		if c.GuildID == "" {
			return
		}
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.AddItem(ctx, model.EmptyChannelItem(c.ID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "channel create", err.Error())
		}
	}
}

func channelDeleteHandler(b *bot.Bot) func(s *discordgo.Session, c *discordgo.ChannelDelete) {
	return func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		if c.GuildID == "" {
			return
		}
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.DB.DeleteItem(ctx, model.NewChannelItem(c.ID)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "channel delete", err.Error())
		}
	}
}

// messageDeleteHandler drops the button stored under a deleted message, if
// any. When the cache still has the message, deletions of other authors'
// messages or of messages without components are skipped.
func messageDeleteHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		if m.BeforeDelete != nil {
			if m.BeforeDelete.Author == nil || m.BeforeDelete.Author.ID != s.State.User.ID {
				return
			}
			if len(m.BeforeDelete.Components) == 0 {
				return
			}
		}
		ctx, cancel := eventContext()
		defer cancel()
		field := model.FieldButtons + "." + m.ID
		if err := b.DB.UnsetItemProperty(ctx, model.NewChannelItem(m.ChannelID), field); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "message delete", err.Error())
		}
	}
}

// Scheduled event changes are forwarded to the calendar when it is
// authorized; otherwise the next synchronize after authorization catches
// up.

func scheduledEventCreateHandler(b *bot.Bot) func(s *discordgo.Session, e *discordgo.GuildScheduledEventCreate) {
	return func(s *discordgo.Session, e *discordgo.GuildScheduledEventCreate) {
		if !b.Calendar.Authorized() {
			return
		}
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.Calendar.Create(ctx, syncer.ScheduledEventToCalendar(e.GuildScheduledEvent)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "scheduled event create", err.Error())
		}
	}
}

func scheduledEventUpdateHandler(b *bot.Bot) func(s *discordgo.Session, e *discordgo.GuildScheduledEventUpdate) {
	return func(s *discordgo.Session, e *discordgo.GuildScheduledEventUpdate) {
		if !b.Calendar.Authorized() {
			return
		}
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.Calendar.Update(ctx, syncer.ScheduledEventToCalendar(e.GuildScheduledEvent)); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "scheduled event update", err.Error())
		}
	}
}

func scheduledEventDeleteHandler(b *bot.Bot) func(s *discordgo.Session, e *discordgo.GuildScheduledEventDelete) {
	return func(s *discordgo.Session, e *discordgo.GuildScheduledEventDelete) {
		if !b.Calendar.Authorized() {
			return
		}
		ctx, cancel := eventContext()
		defer cancel()
		if err := b.Calendar.Delete(ctx, e.ID); err != nil {
			utils.LogError(s, b.Config.LogChannelID, "events", "scheduled event delete", err.Error())
		}
	}
}

func eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), interactionTimeout)
}
