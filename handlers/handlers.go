// Package handlers wires the gateway events and interactions to the rest
// of the bot: slash commands run through permission gating, button clicks
// dispatch to the action registry, and roster events keep the mirror
// current.
package handlers

import (
	"beniyu-bot/bot"
)

func Register(b *bot.Bot) {
	b.Session.AddHandler(interactionHandler(b))

	b.Session.AddHandler(guildMemberAddHandler(b))
	b.Session.AddHandler(guildMemberRemoveHandler(b))
	b.Session.AddHandler(guildRoleCreateHandler(b))
	b.Session.AddHandler(guildRoleDeleteHandler(b))
	b.Session.AddHandler(channelCreateHandler(b))
	b.Session.AddHandler(channelDeleteHandler(b))
	b.Session.AddHandler(messageDeleteHandler(b))
	b.Session.AddHandler(scheduledEventCreateHandler(b))
	b.Session.AddHandler(scheduledEventUpdateHandler(b))
	b.Session.AddHandler(scheduledEventDeleteHandler(b))
}
