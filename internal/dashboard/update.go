package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventreview/internal/backend"
	"eventreview/internal/models"
)

// Overlay metadata written for manual location overrides.
const (
	overlayMergeLogic = "overwrite_empty"
	overlaySource     = "manual"
	overlayReason     = "Manual location override for Meetup events"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func occurrence(uid, recurrenceID string) func(*models.Event) bool {
	return func(e *models.Event) bool { return e.Matches(uid, recurrenceID) }
}

func series(uid string) func(*models.Event) bool {
	return func(e *models.Event) bool { return e.UID == uid }
}

// UpdateEventStatus changes the review status of one occurrence. Approve and
// reject go through the PATCH endpoint, which targets (uid, recurrenceID).
// Pending can only be expressed through the status endpoint, which has no
// recurrence matching, so it applies to every occurrence of uid.
func (m *EventManager) UpdateEventStatus(ctx context.Context, uid, recurrenceID string, status models.ReviewStatus) error {
	var err error
	match := occurrence(uid, recurrenceID)
	if status == models.StatusPending {
		err = m.backend.UpdateStatus(ctx, uid, status)
		match = series(uid)
	} else {
		rejected := status.Rejected()
		err = m.backend.PatchEvent(ctx, uid, backend.PatchRequest{RecurrenceID: recurrenceID, Rejected: &rejected})
	}
	if err != nil {
		m.logger.Error("Error updating status", "uid", uid, "recurrence_id", recurrenceID, "error", err)
		m.notify(LevelError, msgStatusFailed)
		return fmt.Errorf("failed to update status of %s: %w", uid, err)
	}

	n := m.apply(match, func(e *models.Event) { e.Status = status })
	m.logger.Info("Updated event status", "uid", uid, "recurrence_id", recurrenceID, "status", status, "matched", n)

	m.notify(LevelSuccess, msgStatusUpdated)
	m.LoadStats(ctx)
	return nil
}

// ApproveEvent approves or rejects one occurrence.
func (m *EventManager) ApproveEvent(ctx context.Context, uid, recurrenceID string, approved bool) error {
	status := models.StatusRejected
	if approved {
		status = models.StatusApproved
	}
	return m.UpdateEventStatus(ctx, uid, recurrenceID, status)
}

// UpdateEventOrganization changes the organization of one occurrence.
func (m *EventManager) UpdateEventOrganization(ctx context.Context, uid, recurrenceID, organization string) error {
	err := m.backend.PatchEvent(ctx, uid, backend.PatchRequest{RecurrenceID: recurrenceID, Organization: &organization})
	if err != nil {
		m.logger.Error("Error updating organization", "uid", uid, "recurrence_id", recurrenceID, "error", err)
		m.notify(LevelError, msgOrganizationFailed)
		return fmt.Errorf("failed to update organization of %s: %w", uid, err)
	}

	m.apply(occurrence(uid, recurrenceID), func(e *models.Event) { e.Organization = organization })
	m.notify(LevelSuccess, msgOrganizationUpdate)
	return nil
}

// UpdateEventType changes the type of every occurrence sharing uid. The
// backend propagates type across the series, so recurrenceID only names the
// occurrence the edit started from.
func (m *EventManager) UpdateEventType(ctx context.Context, uid, recurrenceID, eventType string) error {
	err := m.backend.PatchEvent(ctx, uid, backend.PatchRequest{RecurrenceID: recurrenceID, Type: &eventType})
	if err != nil {
		m.logger.Error("Error updating event type", "uid", uid, "error", err)
		m.notify(LevelError, msgTypeFailed)
		return fmt.Errorf("failed to update type of %s: %w", uid, err)
	}

	n := m.apply(series(uid), func(e *models.Event) { e.Type = eventType })
	m.logger.Info("Updated event type", "uid", uid, "type", eventType, "matched", n)
	m.notify(LevelSuccess, msgTypeUpdated)
	return nil
}

// SetLocationOverlay overrides the displayed location of one occurrence.
func (m *EventManager) SetLocationOverlay(ctx context.Context, uid, recurrenceID, location string) error {
	err := m.backend.SetOverlay(ctx, uid, backend.OverlayRequest{
		Field:      models.OverlayLocation,
		Value:      location,
		MergeLogic: overlayMergeLogic,
		Reason:     overlayReason,
	})
	if err != nil {
		m.logger.Error("Error setting location overlay", "uid", uid, "recurrence_id", recurrenceID, "error", err)
		m.notify(LevelError, msgOverlaySetFailed)
		return fmt.Errorf("failed to set location overlay on %s: %w", uid, err)
	}

	record := models.OverlayRecord{
		Value:      location,
		MergeLogic: overlayMergeLogic,
		Source:     overlaySource,
		Timestamp:  m.now().UTC().Format(timestampLayout),
		Reason:     overlayReason,
	}
	m.apply(occurrence(uid, recurrenceID), func(e *models.Event) {
		if e.Overlay == nil {
			e.Overlay = make(map[string]models.OverlayRecord)
		}
		e.Overlay[models.OverlayLocation] = record
	})
	m.notify(LevelSuccess, msgOverlaySet)
	return nil
}

// RemoveLocationOverlay drops the location override of one occurrence.
func (m *EventManager) RemoveLocationOverlay(ctx context.Context, uid, recurrenceID string) error {
	if err := m.backend.DeleteOverlay(ctx, uid, models.OverlayLocation); err != nil {
		m.logger.Error("Error removing location overlay", "uid", uid, "recurrence_id", recurrenceID, "error", err)
		m.notify(LevelError, msgOverlayRemoveFail)
		return fmt.Errorf("failed to remove location overlay on %s: %w", uid, err)
	}

	m.apply(occurrence(uid, recurrenceID), func(e *models.Event) {
		delete(e.Overlay, models.OverlayLocation)
	})
	m.notify(LevelSuccess, msgOverlayRemoved)
	return nil
}

// SaveLocation applies a location typed by the user. Non-empty input sets an
// overlay. Empty input removes the overlay if there is one, and otherwise does
// nothing.
func (m *EventManager) SaveLocation(ctx context.Context, uid, recurrenceID, input string) error {
	location := strings.TrimSpace(input)
	if location != "" {
		return m.SetLocationOverlay(ctx, uid, recurrenceID, location)
	}

	m.mu.Lock()
	hasOverlay := false
	if e := m.findLocked(models.EventKey{UID: uid, RecurrenceID: recurrenceID}); e != nil {
		_, hasOverlay = e.LocationOverlay()
	}
	m.mu.Unlock()

	if !hasOverlay {
		m.logger.Debug("Empty location with no overlay, nothing to do", "uid", uid, "recurrence_id", recurrenceID)
		return nil
	}
	return m.RemoveLocationOverlay(ctx, uid, recurrenceID)
}

// Today returns the current time in the manager's display location.
func (m *EventManager) Today() time.Time {
	return m.now().In(m.loc)
}

// Location returns the zone used to derive dates.
func (m *EventManager) Location() *time.Location {
	return m.loc
}
