package notifications

import (
	"strings"
	"time"

	"github.com/docmatch/notifier/pkg/validator"
)

// Type represents the notification severity.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

// Types lists every valid notification type.
var Types = []Type{TypeInfo, TypeWarning, TypeSuccess, TypeError}

// Channel is the medium a notification was produced for.
// This service only produces ChannelInApp rows.
type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Content bounds.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 1000
)

// Notification is one message to one recipient.
// ReadAt is nil while unread; once set it is never cleared.
type Notification struct {
	ID          int64
	RecipientID int64
	Title       string
	Body        string
	Type        Type
	Channel     Channel
	Data        map[string]any
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// IsRead reports whether the notification has been read.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Draft is the recipient-independent content of a notification.
type Draft struct {
	Title string
	Body  string
	Type  Type
	Data  map[string]any
}

// Normalize trims the text fields and defaults Type to info.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	if d.Type == "" {
		d.Type = TypeInfo
	}
	return d
}

// Validate checks content bounds and type. Call it on a normalized draft.
func (d Draft) Validate() error {
	return validator.Apply(
		validator.Required("title", d.Title),
		validator.MaxLen("title", d.Title, MaxTitleLength),
		validator.Required("body", d.Body),
		validator.MaxLen("body", d.Body, MaxBodyLength),
		validator.OneOf("type", d.Type, Types),
	)
}

func (d Draft) forRecipient(recipientID int64, now time.Time) Notification {
	return Notification{
		RecipientID: recipientID,
		Title:       d.Title,
		Body:        d.Body,
		Type:        d.Type,
		Channel:     ChannelInApp,
		Data:        d.Data,
		CreatedAt:   now,
	}
}
