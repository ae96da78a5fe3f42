// Package events defines the domain events published for asynchronous
// processing, their per-action schemas, and the SNS-backed emitter.
//
// Every event is validated against its action's schema before it may be
// published, and any logging of an event goes through Redacted first so
// secret material never reaches a log line.
package events

import (
	"fmt"
	"strings"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/normalize"
)

// Action tags the event union.
type Action string

const (
	ActionStore    Action = "store"
	ActionRetrieve Action = "retrieve"
	ActionNuke     Action = "nuke"
	ActionSendCode Action = "sendCode"
)

// Event is the message published to the downstream pipeline. Which fields
// are required depends on Action; Validate enforces the schema.
type Event struct {
	Action                Action `json:"action"`
	Secret                string `json:"secret,omitempty"`
	RawApplication        string `json:"rawApplication,omitempty"`
	NormalizedApplication string `json:"normalizedApplication,omitempty"`
	UserToken             string `json:"userToken"`
}

// NewStoreEvent builds a store event, trimming the user-supplied fields and
// deriving the normalized application name.
func NewStoreEvent(secret, rawApplication, userToken string) Event {
	raw := strings.TrimSpace(rawApplication)
	return Event{
		Action:                ActionStore,
		Secret:                strings.TrimSpace(secret),
		RawApplication:        raw,
		NormalizedApplication: normalize.Application(raw),
		UserToken:             userToken,
	}
}

func NewRetrieveEvent(rawApplication, userToken string) Event {
	raw := strings.TrimSpace(rawApplication)
	return Event{
		Action:                ActionRetrieve,
		RawApplication:        raw,
		NormalizedApplication: normalize.Application(raw),
		UserToken:             userToken,
	}
}

func NewNukeEvent(userToken string) Event {
	return Event{Action: ActionNuke, UserToken: userToken}
}

func NewSendCodeEvent(userToken string) Event {
	return Event{Action: ActionSendCode, UserToken: userToken}
}

// Redacted returns a copy safe for logging: the secret is replaced with a
// length placeholder. The original event is never mutated, so the payload
// that gets published is exactly the one that was validated.
func (e Event) Redacted() Event {
	if e.Secret != "" {
		e.Secret = fmt.Sprintf("(removed %d chars)", len(e.Secret))
	}
	return e
}

// Validate checks the event against its action-specific schema. Invalid
// events yield an error matching common.ErrorMessageInvalid; the message
// names the offending field but never includes field content.
func (e Event) Validate() error {
	if err := fieldLen("userToken", e.UserToken, 20, 100); err != nil {
		return err
	}

	switch e.Action {
	case ActionStore:
		if err := fieldLen("secret", e.Secret, 3, 256); err != nil {
			return err
		}
		if err := fieldLen("rawApplication", e.RawApplication, 2, 256); err != nil {
			return err
		}
		return fieldLen("normalizedApplication", e.NormalizedApplication, 2, 256)
	case ActionRetrieve:
		if e.Secret != "" {
			return fmt.Errorf("%w: unexpected field secret for action %s", common.ErrorMessageInvalid, e.Action)
		}
		if err := fieldLen("rawApplication", e.RawApplication, 2, 256); err != nil {
			return err
		}
		return fieldLen("normalizedApplication", e.NormalizedApplication, 2, 256)
	case ActionNuke, ActionSendCode:
		if e.Secret != "" || e.RawApplication != "" || e.NormalizedApplication != "" {
			return fmt.Errorf("%w: unexpected fields for action %s", common.ErrorMessageInvalid, e.Action)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", common.ErrorMessageInvalid, string(e.Action))
	}
}

func fieldLen(name, value string, min, max int) error {
	if len(value) < min || len(value) > max {
		return fmt.Errorf("%w: field %s length %d outside [%d,%d]",
			common.ErrorMessageInvalid, name, len(value), min, max)
	}
	return nil
}
