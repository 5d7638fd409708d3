package dashboard

import "log/slog"

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Presenter receives user-facing outcomes from the EventManager.
type Presenter interface {
	// Notify shows a transient, auto-dismissing message.
	Notify(level Level, message string)
	// Alert shows a blocking message the user has to acknowledge.
	Alert(message string)
}

// User-facing messages.
const (
	msgLoadFailed = "Failed to load events. Please try again."

	msgStatusUpdated      = "Event status updated successfully!"
	msgStatusFailed       = "Failed to update event status. Please try again."
	msgOrganizationUpdate = "Event organization updated successfully!"
	msgOrganizationFailed = "Failed to update event organization. Please try again."
	msgTypeUpdated        = "Event type updated successfully!"
	msgTypeFailed         = "Failed to update event type. Please try again."
	msgOverlaySet         = "Location overlay set successfully!"
	msgOverlaySetFailed   = "Failed to set location overlay. Please try again."
	msgOverlayRemoved     = "Location overlay removed successfully!"
	msgOverlayRemoveFail  = "Failed to remove location overlay. Please try again."
)

// LogPresenter reports notifications through a structured logger. It is the
// presenter used by the command line.
type LogPresenter struct {
	logger *slog.Logger
}

// NewLogPresenter creates a LogPresenter.
func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Notify(level Level, message string) {
	switch level {
	case LevelError:
		p.logger.Error(message)
	default:
		p.logger.Info(message, "kind", string(level))
	}
}

func (p *LogPresenter) Alert(message string) {
	p.logger.Error(message, "alert", true)
}

// MultiPresenter fans every call out to each of its presenters in order.
type MultiPresenter []Presenter

func (m MultiPresenter) Notify(level Level, message string) {
	for _, p := range m {
		p.Notify(level, message)
	}
}

func (m MultiPresenter) Alert(message string) {
	for _, p := range m {
		p.Alert(message)
	}
}
