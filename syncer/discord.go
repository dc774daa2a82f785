package syncer

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"beniyu-bot/calendar"
)

const memberPageSize = 1000

// DiscordRoster adapts a discordgo session to the RosterProvider contract
// for one guild.
type DiscordRoster struct {
	session *discordgo.Session
	guildID string
}

func NewDiscordRoster(session *discordgo.Session, guildID string) *DiscordRoster {
	return &DiscordRoster{session: session, guildID: guildID}
}

func (d *DiscordRoster) FetchMembers(ctx context.Context) ([]string, error) {
	ids := []string{}
	after := ""
	for {
		members, err := d.session.GuildMembers(d.guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			ids = append(ids, member.User.ID)
		}
		if len(members) < memberPageSize {
			return ids, nil
		}
		after = members[len(members)-1].User.ID
	}
}

func (d *DiscordRoster) FetchRoles(ctx context.Context) ([]string, error) {
	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	return ids, nil
}

func (d *DiscordRoster) FetchChannels(ctx context.Context) ([]string, error) {
	channels, err := d.session.GuildChannels(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(channels))
	for i, channel := range channels {
		ids[i] = channel.ID
	}
	return ids, nil
}

func (d *DiscordRoster) ChannelIsText(ctx context.Context, channelID string) bool {
	channel, err := d.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false
	}
	switch channel.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return true
	}
	return false
}

func (d *DiscordRoster) MessageExists(ctx context.Context, channelID, messageID string) bool {
	_, err := d.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("Message %s in channel %s not fetchable: %v", messageID, channelID, err)
		return false
	}
	return true
}

func (d *DiscordRoster) FetchScheduledEvents(ctx context.Context) ([]calendar.Event, error) {
	scheduled, err := d.session.GuildScheduledEvents(d.guildID, false, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	events := make([]calendar.Event, len(scheduled))
	for i, entry := range scheduled {
		events[i] = ScheduledEventToCalendar(entry)
	}
	return events, nil
}

// ScheduledEventToCalendar maps one guild scheduled event to the calendar
// boundary type. Events without an explicit end default to one hour.
func ScheduledEventToCalendar(event *discordgo.GuildScheduledEvent) calendar.Event {
	end := event.ScheduledStartTime.Add(time.Hour)
	if event.ScheduledEndTime != nil {
		end = *event.ScheduledEndTime
	}
	return calendar.Event{
		ID:          event.ID,
		Title:       event.Name,
		Description: event.Description,
		Location:    event.EntityMetadata.Location,
		Start:       event.ScheduledStartTime,
		End:         end,
	}
}

var _ RosterProvider = (*DiscordRoster)(nil)
