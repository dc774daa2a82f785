// Package actions holds the handlers that button payloads dispatch to by
// name. A handler may return a partial interaction update, or nil to leave
// the message untouched.
package actions

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.mongodb.org/mongo-driver/bson"

	"beniyu-bot/database"
)

// Handler executes one button action. data is the opaque payload stored on
// the button, with the clicked component's custom ID merged in.
type Handler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, db *database.GuildDatabase, data bson.M) (*discordgo.InteractionResponseData, error)

// Registry maps action names to handlers. It is a plugin point: commands
// that create buttons pick the handler name, the button handler looks it
// up here.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns a registry with the built-in actions installed.
func NewRegistry() *Registry {
	r := &Registry{handlers: map[string]Handler{}}
	r.Register(SuggestionVoteAction, SuggestionVote)
	r.Register(RoleToggleAction, RoleToggle)
	return r
}

func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

func (r *Registry) Get(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}
