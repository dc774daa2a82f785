package bot

import (
	"github.com/bwmarrin/discordgo"

	"beniyu-bot/actions"
	"beniyu-bot/calendar"
	"beniyu-bot/config"
	"beniyu-bot/database"
	"beniyu-bot/permissions"
	"beniyu-bot/syncer"
)

type Bot struct {
	Session            *discordgo.Session
	Config             *config.Config
	DB                 *database.GuildDatabase
	Resolver           *permissions.Resolver
	Syncer             *syncer.Syncer
	Calendar           *calendar.GoogleCalendar
	Actions            *actions.Registry
	RegisteredCommands []*discordgo.ApplicationCommand
}

func New(cfg *config.Config, db *database.GuildDatabase) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentGuildScheduledEvents

	cal := calendar.NewGoogleCalendar(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURI,
		cfg.GoogleCalendarID,
		cfg.GoogleTokenPath,
	)
	roster := syncer.NewDiscordRoster(session, cfg.GuildID)

	return &Bot{
		Session:  session,
		Config:   cfg,
		DB:       db,
		Resolver: permissions.NewResolver(db, cfg.OwnerUserID),
		Syncer:   syncer.New(db, roster, cal),
		Calendar: cal,
		Actions:  actions.NewRegistry(),
	}, nil
}

func (b *Bot) Close() {
	b.Session.Close()
}
