package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event represents one calendar occurrence as served by the review backend.
// Fields mirror the backend's JSON response; nullable strings are flattened to "".
type Event struct {
	UID          string                   // Identifier shared by every occurrence of a series
	RecurrenceID string                   // Distinguishes occurrences of a series; "" for none
	Summary      string                   // Title of the event
	Description  string                   // Free-form description
	Location     string                   // Location as imported from the source calendar
	StartTime    time.Time                // Start of the occurrence
	EndTime      time.Time                // End of the occurrence
	Organization string                   // Organizing group, editable
	Type         string                   // Event type, editable across the whole series
	Status       ReviewStatus             // Review state
	Overlay      map[string]OverlayRecord // Manual overrides keyed by field name
}

// OverlayRecord is a manually applied override for a single event field.
type OverlayRecord struct {
	Value      string `json:"value"`
	MergeLogic string `json:"mergeLogic"`
	Source     string `json:"source"`
	Timestamp  string `json:"timestamp"`
	Reason     string `json:"reason"`
}

// OverlayLocation is the overlay field name used for location overrides.
const OverlayLocation = "location"

// EventKey identifies a single occurrence.
type EventKey struct {
	UID          string
	RecurrenceID string
}

// Key returns the occurrence identity of e.
func (e *Event) Key() EventKey {
	return EventKey{UID: e.UID, RecurrenceID: e.RecurrenceID}
}

// Matches reports whether e is the occurrence identified by uid and recurrenceID.
func (e *Event) Matches(uid, recurrenceID string) bool {
	return e.UID == uid && e.RecurrenceID == recurrenceID
}

// LocationOverlay returns the active location override, if any.
func (e *Event) LocationOverlay() (OverlayRecord, bool) {
	rec, ok := e.Overlay[OverlayLocation]
	return rec, ok
}

// DisplayLocation is the location shown to reviewers: the overlay value when
// one is set, otherwise the imported location.
func (e *Event) DisplayLocation() string {
	if rec, ok := e.LocationOverlay(); ok {
		return rec.Value
	}
	return e.Location
}

// Date returns the calendar date of the event start in loc, formatted YYYY-MM-DD.
func (e *Event) Date(loc *time.Location) string {
	return e.StartTime.In(loc).Format(DateLayout)
}

// Clone returns a deep copy of e.
func (e Event) Clone() Event {
	if e.Overlay != nil {
		overlay := make(map[string]OverlayRecord, len(e.Overlay))
		for k, v := range e.Overlay {
			overlay[k] = v
		}
		e.Overlay = overlay
	}
	return e
}

// DateLayout is the layout of DateGroup keys.
const DateLayout = "2006-01-02"

// DateGroup is a derived bucket of events sharing a calendar date.
type DateGroup struct {
	Date   string  `json:"date"`
	Events []Event `json:"events"`
}

// Stats is the backend's summary object. It is passed through without interpretation.
type Stats map[string]any

type wireEvent struct {
	UID          string                   `json:"uid"`
	RecurrenceID *string                  `json:"recurrence_id"`
	Summary      string                   `json:"summary"`
	Description  *string                  `json:"description"`
	Location     *string                  `json:"location"`
	StartTime    timestamp                `json:"start_time"`
	EndTime      timestamp                `json:"end_time"`
	Organization string                   `json:"organization"`
	Type         string                   `json:"type"`
	Rejected     *bool                    `json:"rejected,omitempty"`
	ReviewStatus string                   `json:"review_status,omitempty"`
	Overlay      map[string]OverlayRecord `json:"overlay,omitempty"`
}

// timestampLayouts are tried in order when decoding event times. The backend
// and hand-written fixtures sometimes omit seconds.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}

// timestamp is a time.Time that decodes with or without seconds. null and ""
// decode to the zero time.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == nil || *s == "" {
		*t = timestamp{}
		return nil
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, *s)
		if err == nil {
			*t = timestamp(parsed)
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts both the boolean "rejected" and the tri-state
// "review_status" representations. review_status wins when both are present.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	status := StatusApproved
	switch {
	case w.ReviewStatus != "":
		s, err := ParseReviewStatus(w.ReviewStatus)
		if err != nil {
			return fmt.Errorf("event %s: %w", w.UID, err)
		}
		status = s
	case w.Rejected != nil && *w.Rejected:
		status = StatusRejected
	}

	*e = Event{
		UID:          w.UID,
		RecurrenceID: deref(w.RecurrenceID),
		Summary:      w.Summary,
		Description:  deref(w.Description),
		Location:     deref(w.Location),
		StartTime:    time.Time(w.StartTime),
		EndTime:      time.Time(w.EndTime),
		Organization: w.Organization,
		Type:         w.Type,
		Status:       status,
		Overlay:      w.Overlay,
	}
	return nil
}

// MarshalJSON writes both status representations so either frontend variant can read it.
func (e Event) MarshalJSON() ([]byte, error) {
	rejected := e.Status == StatusRejected
	w := wireEvent{
		UID:          e.UID,
		RecurrenceID: &e.RecurrenceID,
		Summary:      e.Summary,
		Description:  &e.Description,
		Location:     &e.Location,
		StartTime:    timestamp(e.StartTime),
		EndTime:      timestamp(e.EndTime),
		Organization: e.Organization,
		Type:         e.Type,
		Rejected:     &rejected,
		ReviewStatus: e.Status.String(),
		Overlay:      e.Overlay,
	}
	return json.Marshal(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
