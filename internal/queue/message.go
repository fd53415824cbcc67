package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"civicpulse.app/sla/internal/model"
)

// Message is a notification read back from the stream.
type Message struct {
	ID           string
	Notification model.Notification
	Attempt      int
	TraceID      string
	LastError    string
	Raw          redis.XMessage
}

// ParseMessage decodes stream fields into a Message. Messages that fail to
// parse can never be delivered and are acknowledged by the caller.
func ParseMessage(msg redis.XMessage) (Message, error) {
	notificationID, err := parseString(msg.Values, "notification_id")
	if err != nil {
		return Message{}, err
	}
	issueID, err := parseString(msg.Values, "issue_id")
	if err != nil {
		return Message{}, err
	}
	kindStr, err := parseString(msg.Values, "kind")
	if err != nil {
		return Message{}, err
	}
	kind := model.NotificationKind(kindStr)
	if !kind.Valid() {
		return Message{}, fmt.Errorf("unknown notification kind %q", kindStr)
	}
	recipient, err := parseString(msg.Values, "recipient")
	if err != nil {
		return Message{}, err
	}

	var meta model.NotificationMetadata
	if raw, ok := msg.Values["metadata"]; ok {
		if err := json.Unmarshal([]byte(fmt.Sprint(raw)), &meta); err != nil {
			return Message{}, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	var createdAt time.Time
	if raw, ok := msg.Values["created_at"]; ok {
		createdAt, err = time.Parse(time.RFC3339Nano, fmt.Sprint(raw))
		if err != nil {
			return Message{}, fmt.Errorf("parsing created_at: %w", err)
		}
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	return Message{
		ID: msg.ID,
		Notification: model.Notification{
			ID:        notificationID,
			Kind:      kind,
			IssueID:   issueID,
			Recipient: recipient,
			Metadata:  meta,
			CreatedAt: createdAt,
		},
		Attempt:   attempt,
		TraceID:   parseOptionalString(msg.Values, "trace_id"),
		LastError: parseOptionalString(msg.Values, "last_error"),
		Raw:       msg,
	}, nil
}

func messageValues(n model.Notification, attempt int, traceID string) (map[string]any, error) {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	values := map[string]any{
		"notification_id": n.ID,
		"kind":            string(n.Kind),
		"issue_id":        n.IssueID,
		"recipient":       n.Recipient,
		"metadata":        string(meta),
		"created_at":      n.CreatedAt.UTC().Format(time.RFC3339Nano),
		"attempt":         attempt,
	}
	if traceID != "" {
		values["trace_id"] = traceID
	}
	return values, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
