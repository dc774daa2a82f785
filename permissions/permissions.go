// Package permissions implements the hierarchical wildcard permission
// model. A stored grant of "command.*" covers a check for
// "command.use.ping".
package permissions

import (
	"context"
	"log"
	"strings"
	"sync"

	"beniyu-bot/database"
	"beniyu-bot/model"
)

// Actor is the subject of a permission check: a bare identity, or a member
// whose roles are consulted first in the order the platform supplied them.
type Actor struct {
	UserID  string
	RoleIDs []string
}

// GetAllPermissions expands a dotted permission string into every scope
// that would grant it: the universal wildcard, one wildcard per non-final
// prefix, then the literal string. Empty segments are preserved rather than
// filtered, so degenerate inputs still expand structurally.
func GetAllPermissions(permission string) []string {
	valid := []string{"*"}
	current := ""
	segments := strings.Split(permission, ".")
	for _, segment := range segments[:len(segments)-1] {
		current += segment + "."
		valid = append(valid, current+"*")
	}
	return append(valid, permission)
}

// hasAny reports whether any stored permission is in the expanded scope
// set. The universal wildcard is checked first so a blanket grant short
// circuits.
func hasAny(stored []string, expanded []string) bool {
	scopes := make(map[string]struct{}, len(expanded))
	for _, scope := range expanded {
		scopes[scope] = struct{}{}
	}
	for _, own := range stored {
		if own == "*" {
			return true
		}
		if _, ok := scopes[own]; ok {
			return true
		}
	}
	return false
}

// Resolver decides permission checks against the mirror, self-healing
// missing records as it goes.
type Resolver struct {
	db      *database.GuildDatabase
	ownerID string

	healing sync.Map // collection/id -> in-flight default-record creation
}

func NewResolver(db *database.GuildDatabase, ownerID string) *Resolver {
	return &Resolver{db: db, ownerID: ownerID}
}

// CheckPermission reports whether the actor holds the permission. Roles are
// tested first; a role or user with no mirrored record fails closed for
// this check while a default record is created in the background. Storage
// errors that survive the reconnect retry propagate rather than silently
// denying.
func (r *Resolver) CheckPermission(ctx context.Context, permission string, actor Actor) (bool, error) {
	// Operator escape hatch, decided before any storage access.
	if r.ownerID != "" && actor.UserID == r.ownerID {
		return true, nil
	}

	expanded := GetAllPermissions(permission)

	for _, roleID := range actor.RoleIDs {
		records, err := r.db.GetItem(ctx, model.NewRoleItem(roleID))
		if err != nil {
			return false, err
		}
		if len(records) == 0 {
			r.healMissing(model.EmptyRoleItem(roleID))
			continue
		}
		if role, ok := records[0].(*model.RoleItem); ok && hasAny(role.Perms, expanded) {
			return true, nil
		}
	}

	records, err := r.db.GetItem(ctx, model.NewUserItem(actor.UserID))
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		r.healMissing(model.EmptyUserItem(actor.UserID))
		return false, nil
	}
	user, ok := records[0].(*model.UserItem)
	return ok && hasAny(user.Perms, expanded), nil
}

// CheckChannelPermission reports whether a command is enabled in a channel
// or its parent category. Unknown channels are healed with default records
// and treated as not enabled.
func (r *Resolver) CheckChannelPermission(ctx context.Context, command string, channelIDs ...string) (bool, error) {
	for _, id := range channelIDs {
		if id == "" {
			continue
		}
		records, err := r.db.GetItem(ctx, model.NewChannelItem(id))
		if err != nil {
			return false, err
		}
		if len(records) == 0 {
			r.healMissing(model.EmptyChannelItem(id))
			continue
		}
		channel, ok := records[0].(*model.ChannelItem)
		if !ok {
			continue
		}
		for _, allowed := range channel.AllowedCommands {
			if allowed == command {
				return true, nil
			}
		}
	}
	return false, nil
}

// healMissing creates a default record without blocking the check that
// noticed the gap. Concurrent checks against the same missing record share
// one creation attempt.
func (r *Resolver) healMissing(item model.GuildItem) {
	key := string(item.Collection()) + "/" + item.ID()
	if _, inflight := r.healing.LoadOrStore(key, struct{}{}); inflight {
		return
	}
	go func() {
		defer r.healing.Delete(key)
		if err := r.db.AddItem(context.Background(), item); err != nil {
			log.Printf("Failed to create default %s record %s: %v", item.Collection(), item.ID(), err)
		}
	}()
}
