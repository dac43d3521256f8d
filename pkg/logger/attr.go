package logger

import "log/slog"

// Error records err under "error". A nil error yields an empty Attr, which
// slog omits.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RecipientID records the notification recipient under "recipient_id".
func RecipientID(id int64) slog.Attr {
	return slog.Int64("recipient_id", id)
}

// NotificationID records a notification id under "notification_id".
func NotificationID(id int64) slog.Attr {
	return slog.Int64("notification_id", id)
}

// ConnectionID records a stream connection id under "connection_id".
func ConnectionID(id string) slog.Attr {
	return slog.String("connection_id", id)
}

// Role records a role name under "role".
func Role(role string) slog.Attr {
	return slog.String("role", role)
}

// RequestID records the request id under "request_id".
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// Component records the emitting component under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a quantity under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
