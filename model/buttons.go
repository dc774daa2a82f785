package model

import (
	"go.mongodb.org/mongo-driver/bson"
)

// ButtonTypeAction is the only button kind currently stored. The payload
// names the action handler that interprets it.
const ButtonTypeAction = "action"

// Payload keys shared by button actions.
const (
	ButtonDataName     = "name"
	ButtonDataCustomID = "customId"
)

// Button is the stored spec for one interactive message component. Data is
// an opaque bag owned by the named action handler.
type Button struct {
	Type string `bson:"type"`
	Data bson.M `bson:"data"`
}

// NewActionButton builds an action button for the given handler name with
// extra payload fields merged in.
func NewActionButton(handler string, data bson.M) Button {
	payload := bson.M{ButtonDataName: handler}
	for key, value := range data {
		payload[key] = value
	}
	return Button{Type: ButtonTypeAction, Data: payload}
}

// Name returns the action handler the button dispatches to.
func (b Button) Name() string {
	return AsString(b.Data[ButtonDataName])
}

func (b Button) Document() bson.M {
	return bson.M{"type": b.Type, "data": b.Data}
}

func importButton(doc bson.M) Button {
	return Button{
		Type: AsString(doc["type"]),
		Data: AsDocument(doc["data"]),
	}
}
