package notify

import (
	"strings"

	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/targeting"
	"github.com/docmatch/notifier/pkg/validator"
)

// MaxRecipients caps explicit user_ids in a single request.
const MaxRecipients = 10000

// BulkSendRequest is the wire shape of a send.
type BulkSendRequest struct {
	Title   string             `json:"title"`
	Message string             `json:"message"`
	Type    notifications.Type `json:"type,omitempty"`
	UserIDs []int64            `json:"user_ids,omitempty"`
	Role    string             `json:"role,omitempty"`
	Data    map[string]any     `json:"data,omitempty"`
}

// Target returns the recipient selector of the request.
func (r BulkSendRequest) Target() targeting.Target {
	return targeting.Target{UserIDs: r.UserIDs, Role: r.Role}
}

// Draft returns the normalized notification content.
func (r BulkSendRequest) Draft() notifications.Draft {
	return notifications.Draft{
		Title: r.Title,
		Body:  r.Message,
		Type:  r.Type,
		Data:  r.Data,
	}.Normalize()
}

// Validate checks content and target. A request without any target fails
// with targeting.ErrMissingTarget before field validation runs.
func (r BulkSendRequest) Validate() error {
	target := r.Target()
	if target.IsEmpty() {
		return targeting.ErrMissingTarget
	}

	d := r.Draft()
	byRole := len(r.UserIDs) == 0
	return validator.Apply(
		validator.Required("title", d.Title),
		validator.MaxLen("title", d.Title, notifications.MaxTitleLength),
		validator.Required("message", d.Body),
		validator.MaxLen("message", d.Body, notifications.MaxBodyLength),
		validator.OneOf("type", d.Type, notifications.Types),
		validator.PositiveIDs("user_ids", r.UserIDs),
		validator.MaxItems("user_ids", r.UserIDs, MaxRecipients),
		validator.When(byRole, validator.OneOf("role", strings.ToLower(r.Role), targeting.Roles)),
	)
}
