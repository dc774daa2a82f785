package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Commands returns the slash command set registered for the guild.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check bot latency and host status.",
		},
		{
			Name:        "permissions",
			Description: "Alter user/role permissions.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Give user/role a permission.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionMentionable,
							Name:        "target",
							Description: "The user/role",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "permission",
							Description: "The permission string",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Remove a permission from a user/role.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionMentionable,
							Name:        "target",
							Description: "The user/role",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "permission",
							Description: "The permission string",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "get",
					Description: "Get all specific permissions of user/role.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionMentionable,
							Name:        "target",
							Description: "The user/role",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "channel",
			Description: "Change channel settings.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "commands",
					Description: "Change command settings in channels.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "enable",
							Description: "Enable command in channel.",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "target",
									Description: "The channel",
									Required:    true,
								},
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "command",
									Description: "The command",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "disable",
							Description: "Disable command in channel.",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "target",
									Description: "The channel",
									Required:    true,
								},
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "command",
									Description: "The command",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "list",
							Description: "List enabled commands in channel.",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "target",
									Description: "The channel",
									Required:    true,
								},
							},
						},
					},
				},
			},
		},
		{
			Name:        "suggest",
			Description: "Submit a new suggestion.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "The name of the suggestion",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "The description of the suggestion",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "anonymous",
					Description: "Whether this suggestion should be anonymous",
					Required:    true,
				},
			},
		},
		{
			Name:        "synchronize",
			Description: "Synchronize the bot with any external interfaces.",
		},
		{
			Name:        "authorizecalendar",
			Description: "Authorize the Google calendar integration.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "code",
					Description: "The authorization code from the consent page",
					Required:    false,
				},
			},
		},
		{
			Name:        "create",
			Description: "Create standard items.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rolebutton",
					Description: "Create a role-toggling button.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "The role",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "The button content",
							Required:    false,
						},
					},
				},
			},
		},
	}
}
