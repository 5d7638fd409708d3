// Package dashboard holds the event review view-model: the local copy of the
// backend's events, the filtered and date-grouped view derived from it, and
// the operations that write changes back to the backend.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventreview/internal/backend"
	"eventreview/internal/metrics"
	"eventreview/internal/models"
)

// Backend is the subset of the REST API the view-model uses.
type Backend interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetStats(ctx context.Context) (models.Stats, error)
	PatchEvent(ctx context.Context, uid string, req backend.PatchRequest) error
	UpdateStatus(ctx context.Context, uid string, status models.ReviewStatus) error
	SetOverlay(ctx context.Context, uid string, req backend.OverlayRequest) error
	DeleteOverlay(ctx context.Context, uid, field string) error
}

// Options tunes an EventManager. Zero values pick UTC and the system clock.
type Options struct {
	Location *time.Location
	Now      func() time.Time
}

// EventManager is the event review view-model.
//
// The mutex guards local state only and is never held across a backend call,
// so overlapping edits resolve in whatever order their responses arrive.
type EventManager struct {
	backend   Backend
	presenter Presenter
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time

	mu         sync.Mutex
	events     []models.Event
	groups     []models.DateGroup
	stats      models.Stats
	loading    bool
	filter     models.StatusFilter
	hideSingle bool
	edits      map[models.EventKey]map[Field]*editSession
}

// NewEventManager creates an empty view-model. Call Load to populate it.
func NewEventManager(logger *slog.Logger, b Backend, p Presenter, opts Options) *EventManager {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EventManager{
		backend:   b,
		presenter: p,
		logger:    logger,
		loc:       opts.Location,
		now:       opts.Now,
		stats:     models.Stats{},
		edits:     make(map[models.EventKey]map[Field]*editSession),
	}
}

// Load replaces the local events with the backend's collection. A failure
// raises a blocking alert and leaves the previous events in place.
func (m *EventManager) Load(ctx context.Context) error {
	m.setLoading(true)
	defer m.setLoading(false)

	events, err := m.backend.ListEvents(ctx)
	if err != nil {
		m.logger.Error("Error loading events", "error", err)
		m.presenter.Alert(msgLoadFailed)
		return fmt.Errorf("failed to load events: %w", err)
	}

	m.mu.Lock()
	m.events = events
	m.edits = make(map[models.EventKey]map[Field]*editSession)
	m.refilterLocked()
	groups := len(m.groups)
	m.mu.Unlock()

	m.logger.Info("Loaded events", "count", len(events), "groups", groups)
	return nil
}

// LoadStats refreshes the summary object. Failures are logged and returned
// but never shown to the user; the previous stats stay in place.
func (m *EventManager) LoadStats(ctx context.Context) error {
	stats, err := m.backend.GetStats(ctx)
	if err != nil {
		m.logger.Warn("Error loading stats", "error", err)
		return fmt.Errorf("failed to load stats: %w", err)
	}

	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()
	return nil
}

// FilterEvents recomputes the grouped view from the current events and filters.
func (m *EventManager) FilterEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refilterLocked()
}

// SetStatusFilter changes the status filter and recomputes the view.
func (m *EventManager) SetStatusFilter(f models.StatusFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
	m.refilterLocked()
}

// SetHideSingleEvents toggles hiding of dates with a single event and recomputes the view.
func (m *EventManager) SetHideSingleEvents(hide bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideSingle = hide
	m.refilterLocked()
}

// GroupedEvents returns the current filtered, date-grouped view. Callers must
// not modify the returned groups.
func (m *EventManager) GroupedEvents() []models.DateGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DateGroup(nil), m.groups...)
}

// Events returns a copy of every locally held event.
func (m *EventManager) Events() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, len(m.events))
	for i, e := range m.events {
		out[i] = e.Clone()
	}
	return out
}

// Event returns a copy of the occurrence identified by key.
func (m *EventManager) Event(key models.EventKey) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.findLocked(key); e != nil {
		return e.Clone(), true
	}
	return models.Event{}, false
}

// Stats returns the last successfully loaded summary object.
func (m *EventManager) Stats() models.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Loading reports whether a Load is in flight.
func (m *EventManager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// TotalEvents counts every locally held event, regardless of filters.
func (m *EventManager) TotalEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// VisibleEvents counts the events across the currently held groups.
func (m *EventManager) VisibleEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return countGrouped(m.groups)
}

// State is a point-in-time copy of everything a presenter renders.
type State struct {
	Groups           []models.DateGroup `json:"groups"`
	Stats            models.Stats       `json:"stats"`
	Loading          bool               `json:"loading"`
	StatusFilter     string             `json:"status_filter"`
	HideSingleEvents bool               `json:"hide_single_events"`
	TotalEvents      int                `json:"total_events"`
	VisibleEvents    int                `json:"visible_events"`
	Edits            []EditView         `json:"edits"`
}

// Snapshot returns the current State.
func (m *EventManager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups := m.groups
	if groups == nil {
		groups = []models.DateGroup{}
	}
	return State{
		Groups:           append([]models.DateGroup(nil), groups...),
		Stats:            m.stats,
		Loading:          m.loading,
		StatusFilter:     m.filter.String(),
		HideSingleEvents: m.hideSingle,
		TotalEvents:      len(m.events),
		VisibleEvents:    countGrouped(m.groups),
		Edits:            m.editViewsLocked(),
	}
}

func (m *EventManager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

func (m *EventManager) refilterLocked() {
	m.groups = filterEvents(m.events, m.filter, m.hideSingle, m.now(), m.loc)
}

func (m *EventManager) findLocked(key models.EventKey) *models.Event {
	for i := range m.events {
		if m.events[i].Key() == key {
			return &m.events[i]
		}
	}
	return nil
}

// apply mutates every event selected by match and recomputes the view.
func (m *EventManager) apply(match func(*models.Event) bool, change func(*models.Event)) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.events {
		if match(&m.events[i]) {
			change(&m.events[i])
			n++
		}
	}
	m.refilterLocked()
	return n
}

func (m *EventManager) notify(level Level, message string) {
	metrics.IncNotification(string(level))
	m.presenter.Notify(level, message)
}

func countGrouped(groups []models.DateGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Events)
	}
	return n
}
