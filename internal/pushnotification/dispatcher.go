package pushnotification

import (
	"context"
	"log/slog"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/panicerr"
)

type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
	}
}

// Start forwards terminal status changes to every subscriber until ctx ends.
func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type != eventbus.TaskStatusChanged {
				continue
			}
			if err := panicerr.Do(func() { d.handleStatusChanged(ctx, event) }); err != nil {
				slog.Error("push dispatcher: handler panicked", "event_id", event.ID, "error", err)
			}
		}
	}
}

func (d *Dispatcher) handleStatusChanged(ctx context.Context, event *eventbus.Event) {
	payload := payloadFor(event)
	if payload == nil {
		return
	}
	sent := d.sender.SendForStatus(ctx, checklist.Status(event.Metadata["to"]), payload)
	slog.DebugContext(ctx, "push notification: status alert sent", "task_id", event.ResourceID, "to", event.Metadata["to"], "sent", sent)
}

func payloadFor(event *eventbus.Event) *NotificationPayload {
	var title string
	switch checklist.Status(event.Metadata["to"]) {
	case checklist.StatusDisconnected:
		title = "Patient disconnected"
	case checklist.StatusCompleted:
		title = "Task completed"
	default:
		return nil
	}
	body := event.Metadata["title"]
	if body == "" {
		body = event.ResourceID
	}
	return &NotificationPayload{
		Title: title,
		Body:  body,
		URL:   "/tasks/" + event.ResourceID,
		Tag:   event.ResourceID,
	}
}
