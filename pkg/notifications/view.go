package notifications

import "time"

// View is the wire shape of a notification. It is the only place the
// HTTP and stream layers get JSON field names from.
type View struct {
	ID          int64          `json:"id"`
	RecipientID int64          `json:"recipient_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Type        Type           `json:"type"`
	Channel     Channel        `json:"channel"`
	Data        map[string]any `json:"data"`
	Read        bool           `json:"read"`
	CreatedAt   time.Time      `json:"created_at"`
	ReadAt      *time.Time     `json:"read_at"`
}

// NewView converts a notification into its wire shape.
func NewView(n Notification) View {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	return View{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Body:        n.Body,
		Type:        n.Type,
		Channel:     n.Channel,
		Data:        data,
		Read:        n.IsRead(),
		CreatedAt:   n.CreatedAt.UTC(),
		ReadAt:      utcPtr(n.ReadAt),
	}
}

// NewViews converts a slice, never returning nil.
func NewViews(ns []Notification) []View {
	out := make([]View, len(ns))
	for i, n := range ns {
		out[i] = NewView(n)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
