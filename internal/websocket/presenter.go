package websocket

import (
	"log/slog"

	"eventreview/internal/dashboard"
)

// Presenter pushes view-model notifications and alerts to every connected
// browser.
type Presenter struct {
	hub    *Hub
	logger *slog.Logger
}

// NewPresenter creates a presenter broadcasting through hub.
func NewPresenter(hub *Hub, logger *slog.Logger) *Presenter {
	return &Presenter{hub: hub, logger: logger}
}

func (p *Presenter) Notify(level dashboard.Level, message string) {
	p.send(NewMessage(TypeNotification, NotificationPayload{
		Level:       string(level),
		Message:     message,
		Dismissible: true,
		TimeoutMS:   NotificationTimeout.Milliseconds(),
	}))
}

func (p *Presenter) Alert(message string) {
	p.send(NewMessage(TypeAlert, AlertPayload{Message: message}))
}

// EventsChanged tells clients that the visible events were reloaded.
func (p *Presenter) EventsChanged(total, visible int) {
	p.send(NewMessage(TypeEventsChanged, EventsChangedPayload{
		TotalEvents:   total,
		VisibleEvents: visible,
	}))
}

func (p *Presenter) send(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		p.logger.Error("failed to encode websocket message", "type", msg.Type, "error", err)
		return
	}
	p.hub.Broadcast(data)
}
