package model

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Collection names backing each item kind.
type Collection string

const (
	CollectionUsers    Collection = "users"
	CollectionRoles    Collection = "roles"
	CollectionChannels Collection = "channels"
	CollectionSettings Collection = "settings"
)

// Field names used in stored documents.
const (
	FieldID                   = "_id"
	FieldPermissions          = "permissions"
	FieldButtons              = "buttons"
	FieldAllowedCommands      = "allowedCommands"
	FieldSuggestionChannel    = "suggestionChannel"
	FieldAnonymousSuggestions = "anonymousSuggestions"
	FieldData                 = "data"
)

// GuildItem is the typed view of one stored record. Query returns the
// identity filter for the item, Document the full projection written to the
// store. The ID is fixed at construction.
type GuildItem interface {
	ID() string
	Collection() Collection
	Query() bson.M
	Document() bson.M
	Import(doc bson.M) GuildItem
}

// PermissionedItem is implemented by items that carry a permission set.
type PermissionedItem interface {
	GuildItem
	Permissions() []string
}

// UserItem mirrors one guild member.
type UserItem struct {
	DocID string   `bson:"_id"`
	Perms []string `bson:"permissions"`
}

// NewUserItem returns a query item for the given user ID.
func NewUserItem(id string) *UserItem {
	return &UserItem{DocID: id}
}

// EmptyUserItem returns the default record created for an unknown user.
func EmptyUserItem(id string) *UserItem {
	return &UserItem{DocID: id, Perms: []string{}}
}

func (u *UserItem) ID() string             { return u.DocID }
func (u *UserItem) Collection() Collection { return CollectionUsers }
func (u *UserItem) Permissions() []string  { return u.Perms }

func (u *UserItem) Query() bson.M {
	return bson.M{FieldID: u.DocID}
}

func (u *UserItem) Document() bson.M {
	return bson.M{FieldID: u.DocID, FieldPermissions: u.Perms}
}

func (u *UserItem) Import(doc bson.M) GuildItem {
	return &UserItem{
		DocID: AsString(doc[FieldID]),
		Perms: AsStringSlice(doc[FieldPermissions]),
	}
}

// RoleItem mirrors one guild role.
type RoleItem struct {
	DocID string   `bson:"_id"`
	Perms []string `bson:"permissions"`
}

// NewRoleItem returns a query item for the given role ID.
func NewRoleItem(id string) *RoleItem {
	return &RoleItem{DocID: id}
}

// EmptyRoleItem returns the default record created for an unknown role.
func EmptyRoleItem(id string) *RoleItem {
	return &RoleItem{DocID: id, Perms: []string{}}
}

func (r *RoleItem) ID() string             { return r.DocID }
func (r *RoleItem) Collection() Collection { return CollectionRoles }
func (r *RoleItem) Permissions() []string  { return r.Perms }

func (r *RoleItem) Query() bson.M {
	return bson.M{FieldID: r.DocID}
}

func (r *RoleItem) Document() bson.M {
	return bson.M{FieldID: r.DocID, FieldPermissions: r.Perms}
}

func (r *RoleItem) Import(doc bson.M) GuildItem {
	return &RoleItem{
		DocID: AsString(doc[FieldID]),
		Perms: AsStringSlice(doc[FieldPermissions]),
	}
}

// ChannelItem mirrors one guild channel, together with the interactive
// buttons attached to bot messages in it and the commands enabled there.
type ChannelItem struct {
	DocID                string            `bson:"_id"`
	Buttons              map[string]Button `bson:"buttons"`
	AllowedCommands      []string          `bson:"allowedCommands"`
	SuggestionChannel    string            `bson:"suggestionChannel,omitempty"`
	AnonymousSuggestions bool              `bson:"anonymousSuggestions"`
}

// NewChannelItem returns a query item for the given channel ID.
func NewChannelItem(id string) *ChannelItem {
	return &ChannelItem{DocID: id}
}

// EmptyChannelItem returns the default record created for an unknown
// channel. Anonymous suggestions are allowed until disabled.
func EmptyChannelItem(id string) *ChannelItem {
	return &ChannelItem{
		DocID:                id,
		Buttons:              map[string]Button{},
		AllowedCommands:      []string{},
		AnonymousSuggestions: true,
	}
}

func (c *ChannelItem) ID() string             { return c.DocID }
func (c *ChannelItem) Collection() Collection { return CollectionChannels }

func (c *ChannelItem) Query() bson.M {
	return bson.M{FieldID: c.DocID}
}

func (c *ChannelItem) Document() bson.M {
	buttons := bson.M{}
	for messageID, button := range c.Buttons {
		buttons[messageID] = button.Document()
	}
	doc := bson.M{
		FieldID:                   c.DocID,
		FieldButtons:              buttons,
		FieldAllowedCommands:      c.AllowedCommands,
		FieldAnonymousSuggestions: c.AnonymousSuggestions,
	}
	if c.SuggestionChannel != "" {
		doc[FieldSuggestionChannel] = c.SuggestionChannel
	}
	return doc
}

func (c *ChannelItem) Import(doc bson.M) GuildItem {
	item := &ChannelItem{
		DocID:             AsString(doc[FieldID]),
		Buttons:           map[string]Button{},
		AllowedCommands:   AsStringSlice(doc[FieldAllowedCommands]),
		SuggestionChannel: AsString(doc[FieldSuggestionChannel]),
	}
	if allowed, ok := doc[FieldAnonymousSuggestions].(bool); ok {
		item.AnonymousSuggestions = allowed
	} else {
		item.AnonymousSuggestions = true
	}
	for messageID, raw := range AsDocument(doc[FieldButtons]) {
		item.Buttons[messageID] = importButton(AsDocument(raw))
	}
	return item
}

// SettingsItem is a keyed bag for configuration that is not tied to one
// guild entity, e.g. the global suggestion redirect.
type SettingsItem struct {
	DocID string `bson:"_id"`
	Data  bson.M `bson:"data"`
}

// NewSettingsItem returns a query item for the given setting name.
func NewSettingsItem(name string) *SettingsItem {
	return &SettingsItem{DocID: name}
}

func (s *SettingsItem) ID() string             { return s.DocID }
func (s *SettingsItem) Collection() Collection { return CollectionSettings }

func (s *SettingsItem) Query() bson.M {
	return bson.M{FieldID: s.DocID}
}

func (s *SettingsItem) Document() bson.M {
	return bson.M{FieldID: s.DocID, FieldData: s.Data}
}

func (s *SettingsItem) Import(doc bson.M) GuildItem {
	return &SettingsItem{
		DocID: AsString(doc[FieldID]),
		Data:  AsDocument(doc[FieldData]),
	}
}

func AsString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// AsStringSlice converts the slice shapes the drivers hand back. A missing
// or foreign-typed value decodes as empty.
func AsStringSlice(v interface{}) []string {
	out := []string{}
	switch typed := v.(type) {
	case []string:
		out = append(out, typed...)
	case []interface{}:
		for _, entry := range typed {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
	case bson.A:
		for _, entry := range typed {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func AsDocument(v interface{}) bson.M {
	switch typed := v.(type) {
	case bson.M:
		return typed
	case map[string]interface{}:
		return bson.M(typed)
	case bson.D:
		return typed.Map()
	}
	return bson.M{}
}
