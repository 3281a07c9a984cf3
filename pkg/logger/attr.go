package logger

import (
	"log/slog"
)

// Error logs err under "error". A nil error yields an empty Attr, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id any) slog.Attr {
	return slog.Any("user_id", id)
}

func WorkspaceID(id any) slog.Attr {
	return slog.Any("workspace_id", id)
}

func Tier(tier any) slog.Attr {
	return slog.Any("tier", tier)
}

func Metric(metric any) slog.Attr {
	return slog.Any("metric", metric)
}

// Usage records current usage and the ceiling it was checked against.
func Usage(current float64, limit any) slog.Attr {
	return slog.Group("usage", slog.Float64("current", current), slog.Any("limit", limit))
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}
