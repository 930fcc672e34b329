package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"rustactions/internal/events"
	"rustactions/internal/logging"
)

// Subscriber is the events hub surface Forward needs.
type Subscriber interface {
	Subscribe(buffer int) (<-chan []byte, func())
}

// Options selects which hub events are forwarded.
type Options struct {
	ActionFailures bool
}

// Forward relays hub events to svc until ctx ends or the hub closes the
// subscription.
func Forward(ctx context.Context, hub Subscriber, svc Service, opts Options, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "notifications")
	ch, cancel := hub.Subscribe(events.DefaultBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			event, payload, ok := translate(data, opts)
			if !ok {
				continue
			}
			if err := svc.Publish(ctx, event, payload); err != nil {
				logger.Warn("notification failed",
					logging.Error(err),
					logging.String("event", string(event)),
					logging.String(logging.FieldEventType, "notification_failed"),
					logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				)
			}
		}
	}
}

type hubEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type syncPayload struct {
	ItemsFetched    int     `json:"items_fetched"`
	ImagesFetched   int     `json:"images_fetched"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error"`
}

type actionPayload struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func translate(data []byte, opts Options) (Event, Payload, bool) {
	var ev hubEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", nil, false
	}
	switch ev.Type {
	case events.TypeSyncFinished:
		var p syncPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", nil, false
		}
		if p.Error != "" {
			return EventSyncFailed, Payload{"error": p.Error}, true
		}
		return EventSyncCompleted, Payload{
			"items":            p.ItemsFetched,
			"images":           p.ImagesFetched,
			"duration_seconds": p.DurationSeconds,
		}, true
	case events.TypeAction:
		if !opts.ActionFailures {
			return "", nil, false
		}
		var p actionPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.Success {
			return "", nil, false
		}
		return EventActionFailed, Payload{"action": p.Action, "error": p.Error}, true
	}
	return "", nil, false
}
