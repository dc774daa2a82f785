package handlers

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/actions"
	"beniyu-bot/bot"
	"beniyu-bot/model"
	"beniyu-bot/utils"
)

type commandHandler func(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error

var commandHandlers = map[string]commandHandler{
	"ping":              handlePing,
	"permissions":       handlePermissions,
	"channel":           handleChannel,
	"suggest":           handleSuggest,
	"synchronize":       handleSynchronize,
	"authorizecalendar": handleAuthorizeCalendar,
	"create":            handleCreate,
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, option := range options {
		out[option.Name] = option
	}
	return out
}

func handlePing(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	cpuUsage := "n/a"
	if len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}
	embed := &discordgo.MessageEmbed{
		Title: "Pong!",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "WebSocket latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "Host", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true},
			{Name: "Go version", Value: runtime.Version(), Inline: true},
			{Name: "CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "CPU usage", Value: cpuUsage, Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// mentionedItem resolves a mentionable option to the matching user or role
// record. Discord resolves the snowflake into exactly one of the two maps.
func mentionedItem(i *discordgo.InteractionCreate, id string) model.PermissionedItem {
	resolved := i.ApplicationCommandData().Resolved
	if resolved != nil {
		if _, ok := resolved.Roles[id]; ok {
			return model.NewRoleItem(id)
		}
	}
	return model.NewUserItem(id)
}

func handlePermissions(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub := i.ApplicationCommandData().Options[0]
	options := optionMap(sub.Options)
	targetID := options["target"].Value.(string)
	target := mentionedItem(i, targetID)

	switch sub.Name {
	case "add":
		permission := options["permission"].StringValue()
		if err := b.DB.AddPermission(ctx, target, permission); err != nil {
			return err
		}
		utils.PrivateResponse(s, i, fmt.Sprintf("Granted `%s` to <@%s>.", permission, mentionRef(target)))
	case "delete":
		permission := options["permission"].StringValue()
		if err := b.DB.DeletePermission(ctx, target, permission); err != nil {
			return err
		}
		utils.PrivateResponse(s, i, fmt.Sprintf("Revoked `%s` from <@%s>.", permission, mentionRef(target)))
	case "get":
		records, err := b.DB.GetItem(ctx, target)
		if err != nil {
			return err
		}
		perms := []string{}
		if len(records) > 0 {
			if item, ok := records[0].(model.PermissionedItem); ok {
				perms = item.Permissions()
			}
		}
		if len(perms) == 0 {
			utils.PrivateResponse(s, i, "No permissions stored.")
			return nil
		}
		utils.PrivateResponse(s, i, "Stored permissions:\n`"+strings.Join(perms, "`\n`")+"`")
	}
	return nil
}

// mentionRef formats the inside of a mention for the target kind.
func mentionRef(target model.PermissionedItem) string {
	if _, ok := target.(*model.RoleItem); ok {
		return "&" + target.ID()
	}
	return target.ID()
}

func handleChannel(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	group := i.ApplicationCommandData().Options[0]
	if group.Name != "commands" || len(group.Options) == 0 {
		return nil
	}
	sub := group.Options[0]
	options := optionMap(sub.Options)
	channelID := options["target"].Value.(string)
	channel := model.NewChannelItem(channelID)

	switch sub.Name {
	case "enable":
		command := options["command"].StringValue()
		if err := b.DB.AddToSet(ctx, channel, model.FieldAllowedCommands, command); err != nil {
			return err
		}
		utils.PrivateResponse(s, i, fmt.Sprintf("Enabled `/%s` in <#%s>.", command, channelID))
	case "disable":
		command := options["command"].StringValue()
		if err := b.DB.RemoveFromArray(ctx, channel, model.FieldAllowedCommands, command); err != nil {
			return err
		}
		utils.PrivateResponse(s, i, fmt.Sprintf("Disabled `/%s` in <#%s>.", command, channelID))
	case "list":
		records, err := b.DB.GetItem(ctx, channel)
		if err != nil {
			return err
		}
		enabled := []string{}
		if len(records) > 0 {
			if item, ok := records[0].(*model.ChannelItem); ok {
				enabled = item.AllowedCommands
			}
		}
		if len(enabled) == 0 {
			utils.PrivateResponse(s, i, fmt.Sprintf("No commands enabled in <#%s>.", channelID))
			return nil
		}
		utils.PrivateResponse(s, i, fmt.Sprintf("Enabled in <#%s>: `/%s`", channelID, strings.Join(enabled, "`, `/")))
	}
	return nil
}

// handleSuggest posts a suggestion embed with vote buttons. The message
// goes to the channel's redirect target if one is set, then the global
// "suggestions" setting, then the invoking channel. The vote button is
// stored on the channel the message actually lands in so clicks and the
// dangling-button sweep both find it.
func handleSuggest(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := optionMap(i.ApplicationCommandData().Options)
	name := options["name"].StringValue()
	description := options["description"].StringValue()
	anonymous := options["anonymous"].BoolValue()

	targetChannel, anonymousAllowed, err := suggestionTarget(ctx, b, i.ChannelID)
	if err != nil {
		return err
	}
	if anonymous && !anonymousAllowed {
		utils.PrivateResponse(s, i, "Anonymous suggestions are not allowed here.")
		return nil
	}

	footer := "Suggested by Anonymous"
	color := 0x57F287
	if !anonymous {
		suggester := i.Member.User.Username
		if i.Member.Nick != "" {
			suggester = i.Member.Nick
		}
		footer = "Suggested by " + suggester
		color = 0xED4245
	}
	embed := &discordgo.MessageEmbed{
		Title:       name,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}

	sent, err := s.ChannelMessageSendComplex(targetChannel, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{actions.VoteButtons(0, 0)},
	})
	if err != nil {
		return fmt.Errorf("failed to post suggestion: %w", err)
	}

	button := model.NewActionButton(actions.SuggestionVoteAction, bson.M{
		"agree":    []string{},
		"disagree": []string{},
	})
	field := model.FieldButtons + "." + sent.ID
	if err := b.DB.SetItemProperty(ctx, model.NewChannelItem(targetChannel), field, button.Document()); err != nil {
		return err
	}

	utils.PrivateResponse(s, i, "Your suggestion has been sent!")
	return nil
}

// suggestionTarget resolves where a suggestion from the given channel
// should be posted and whether anonymous submissions are allowed there.
func suggestionTarget(ctx context.Context, b *bot.Bot, channelID string) (string, bool, error) {
	target := channelID
	anonymousAllowed := true

	records, err := b.DB.GetItem(ctx, model.NewChannelItem(channelID))
	if err != nil {
		return "", false, err
	}
	if len(records) > 0 {
		if channel, ok := records[0].(*model.ChannelItem); ok {
			anonymousAllowed = channel.AnonymousSuggestions
			if channel.SuggestionChannel != "" {
				return channel.SuggestionChannel, anonymousAllowed, nil
			}
		}
	}

	settings, err := b.DB.GetItem(ctx, model.NewSettingsItem("suggestions"))
	if err != nil {
		return "", false, err
	}
	if len(settings) > 0 {
		if item, ok := settings[0].(*model.SettingsItem); ok {
			if redirect := model.AsString(item.Data["responseChannel"]); redirect != "" {
				return redirect, anonymousAllowed, nil
			}
		}
	}
	return target, anonymousAllowed, nil
}

func handleSynchronize(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := utils.DeferPrivate(s, i); err != nil {
		return err
	}
	result, err := b.Syncer.Synchronize(ctx)
	if err != nil {
		utils.EditResponse(s, i, utils.InternalErrorMessage)
		return err
	}
	if !result.CalendarOK {
		utils.EditResponse(s, i, "Synchronization complete, but the calendar was skipped. Run /authorizecalendar.")
		return nil
	}
	utils.EditResponse(s, i, "Synchronization complete.")
	return nil
}

func handleAuthorizeCalendar(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := optionMap(i.ApplicationCommandData().Options)
	code, hasCode := options["code"]
	if !hasCode {
		utils.PrivateResponse(s, i, "Authorize here, then rerun with the code:\n"+b.Calendar.AuthURL())
		return nil
	}
	if err := b.Calendar.Exchange(ctx, code.StringValue()); err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	utils.PrivateResponse(s, i, "Calendar authorized.")
	return nil
}

// handleCreate currently only knows rolebutton: post a placeholder message
// to learn its ID, store a role-toggle payload under that ID, then label
// the button with the message ID as its custom ID.
func handleCreate(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub := i.ApplicationCommandData().Options[0]
	if sub.Name != "rolebutton" {
		return nil
	}
	options := optionMap(sub.Options)
	role := options["role"].RoleValue(s, i.GuildID)
	label := role.Name
	if content, ok := options["content"]; ok {
		label = content.StringValue()
	}

	placeholder, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.Button{
				Label:    "Creating button...",
				Style:    discordgo.PrimaryButton,
				CustomID: "temporary",
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to post role button message: %w", err)
	}

	button := model.NewActionButton(actions.RoleToggleAction, bson.M{"role": role.ID})
	field := model.FieldButtons + "." + placeholder.ID
	if err := b.DB.SetItemProperty(ctx, model.NewChannelItem(i.ChannelID), field, button.Document()); err != nil {
		return err
	}

	_, err = s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: i.ChannelID,
		ID:      placeholder.ID,
		Components: &[]discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.Button{
				Label:    label,
				Style:    discordgo.PrimaryButton,
				CustomID: placeholder.ID,
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to finalize role button: %w", err)
	}

	utils.PrivateResponse(s, i, "Role button added.")
	return nil
}
