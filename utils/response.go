package utils

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// Denial prefixes. Policy denials and faults read differently so a user can
// tell a disabled command from a missing grant from a bot failure.
const (
	NotEnabledMessage    = "401: This command is not enabled in this channel."
	NotPermittedMessage  = "401: You do not have the permissions to execute this command."
	InternalErrorMessage = "500: An error occurred while executing this command."
)

// PrivateResponse sends an ephemeral reply to an interaction.
func PrivateResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending private response: %v", err)
	}
}

// PublicResponse sends a visible reply to an interaction.
func PublicResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		log.Printf("Error sending public response: %v", err)
	}
}

// DeferPrivate acknowledges an interaction so a slow handler can edit the
// reply later.
func DeferPrivate(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// EditResponse replaces the content of a deferred reply.
func EditResponse(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &message,
	})
	if err != nil {
		log.Printf("Error editing response: %v", err)
	}
}
