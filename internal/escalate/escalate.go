package escalate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpbot/backend/internal/storage/models"
)

// Channel is the closed set of contact channels. Dispatch goes through
// this enum rather than free-form platform names so an unknown channel
// is a typed error, not a silent map miss.
type Channel int

const (
	ChannelChat Channel = iota
	ChannelEmail
	ChannelPhone
	ChannelTicket
)

func (c Channel) String() string {
	switch c {
	case ChannelChat:
		return "live_chat"
	case ChannelEmail:
		return "email"
	case ChannelPhone:
		return "phone"
	case ChannelTicket:
		return "ticket_system"
	default:
		return "unknown"
	}
}

type UnknownChannelError struct {
	Channel Channel
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown contact channel %d", int(e.Channel))
}

type ContactInfo struct {
	Channel     string `json:"channel"`
	Available   bool   `json:"available"`
	Platform    string `json:"platform,omitempty"`
	URL         string `json:"url,omitempty"`
	Address     string `json:"address,omitempty"`
	Number      string `json:"number,omitempty"`
	Hours       string `json:"hours,omitempty"`
	Description string `json:"description,omitempty"`
}

type Payload struct {
	EscalationID  int64         `json:"escalation_id"`
	Status        string        `json:"status"`
	EstimatedWait string        `json:"estimated_wait_time"`
	Persisted     bool          `json:"persisted"`
	Contacts      []ContactInfo `json:"contact_options"`
}

var channelBuilders = map[Channel]func() ContactInfo{
	ChannelChat: func() ContactInfo {
		return ContactInfo{
			Channel:     ChannelChat.String(),
			Available:   true,
			Platform:    "Intercom",
			URL:         "https://widget.intercom.io/widget/helpbot",
			Description: "Chat with our support team",
		}
	},
	ChannelEmail: func() ContactInfo {
		return ContactInfo{
			Channel:     ChannelEmail.String(),
			Available:   true,
			Address:     "support@helpbot.example.com",
			Description: "Response within 24 hours",
		}
	},
	ChannelPhone: func() ContactInfo {
		return ContactInfo{
			Channel:   ChannelPhone.String(),
			Available: true,
			Number:    "+1-800-123-4567",
			Hours:     "Mon-Fri 9AM-6PM EST",
		}
	},
	ChannelTicket: func() ContactInfo {
		return ContactInfo{
			Channel:     ChannelTicket.String(),
			Available:   true,
			Platform:    "Zendesk",
			URL:         "https://helpbot.zendesk.com/hc/en-us/requests/new",
			Description: "Submit a support ticket",
		}
	},
}

// ContactInfoFor resolves one channel of the static contact menu.
func ContactInfoFor(c Channel) (ContactInfo, error) {
	builder, ok := channelBuilders[c]
	if !ok {
		return ContactInfo{}, &UnknownChannelError{Channel: c}
	}
	return builder(), nil
}

func allContacts() []ContactInfo {
	channels := []Channel{ChannelChat, ChannelEmail, ChannelPhone, ChannelTicket}
	contacts := make([]ContactInfo, 0, len(channels))
	for _, c := range channels {
		info, err := ContactInfoFor(c)
		if err != nil {
			continue
		}
		contacts = append(contacts, info)
	}
	return contacts
}

// Recorder is the slice of the storage collaborator the workflow needs.
type Recorder interface {
	AppendEscalation(ctx context.Context, rec models.EscalationRecord) (int64, error)
}

type Workflow struct {
	store  Recorder
	logger *zap.Logger
}

func NewWorkflow(store Recorder, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{store: store, logger: logger}
}

// Escalate records a human-handoff request and returns the contact menu.
// It always succeeds structurally: a persistence failure is logged and
// reported in the payload, never raised to the caller.
func (w *Workflow) Escalate(ctx context.Context, sessionID, userName, reason string) Payload {
	payload := Payload{
		Status:        models.EscalationStatusPending,
		EstimatedWait: "5-10 minutes",
		Contacts:      allContacts(),
	}

	id, err := w.store.AppendEscalation(ctx, models.EscalationRecord{
		SessionID: sessionID,
		UserName:  userName,
		Reason:    reason,
		Status:    models.EscalationStatusPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		w.logger.Error("Failed to record escalation",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return payload
	}

	payload.EscalationID = id
	payload.Persisted = true
	return payload
}
