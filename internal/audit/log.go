package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"donorlink.org/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	actorKey     ctxKey = "audit_actor_id"
)

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor attaches the acting user id to the context.
func WithActor(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey, userID)
}

func fromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and actor
// context. Session transitions (login, logout, refresh, guard denials)
// all pass through here.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := fromContext(ctx, requestIDKey); rid != "" {
		entry["request_id"] = rid
	}
	if actor := fromContext(ctx, actorKey); actor != "" {
		entry["user_id"] = actor
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
