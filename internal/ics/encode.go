// Package ics renders events as iCalendar data.
package ics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"eventreview/internal/models"
)

// DefaultProductID is the PRODID written when the caller passes none.
const DefaultProductID = "-//eventreview//EN"

// Custom properties carrying review metadata.
const (
	PropOrganizingGroup = "X-ORGANIZING-GROUP"
	PropEventType       = "X-EVENT-TYPE"
	PropReviewStatus    = "X-REVIEW-STATUS"
)

// ErrNoEvents is returned by Encode when there is nothing to write. A
// VCALENDAR needs at least one component.
var ErrNoEvents = errors.New("ics: no events to encode")

// Encode writes events as a single VCALENDAR to w.
func Encode(w io.Writer, events []models.Event, prodID string) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	cal := NewCalendar(prodID)
	stamp := time.Now().UTC()
	for _, e := range events {
		cal.Children = append(cal.Children, ToVEvent(e, stamp).Component)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// NewCalendar returns an empty VCALENDAR with VERSION and PRODID set.
func NewCalendar(prodID string) *ical.Calendar {
	if prodID == "" {
		prodID = DefaultProductID
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	return cal
}

// ToVEvent converts e. LOCATION is the display location, so a location
// overlay wins over the source value.
func ToVEvent(e models.Event, stamp time.Time) *ical.Event {
	ve := ical.NewEvent()
	ve.Props.SetText(ical.PropUID, e.UID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	if !e.EndTime.IsZero() {
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	}
	ve.Props.SetText(ical.PropSummary, e.Summary)

	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if loc := e.DisplayLocation(); loc != "" {
		ve.Props.SetText(ical.PropLocation, loc)
	}
	if e.RecurrenceID != "" {
		setRecurrenceID(ve, e.RecurrenceID)
	}
	if e.Organization != "" {
		setExtension(ve, PropOrganizingGroup, e.Organization)
	}
	if e.Type != "" {
		setExtension(ve, PropEventType, e.Type)
	}
	setExtension(ve, PropReviewStatus, e.Status.String())
	ve.Props.SetText(ical.PropStatus, eventStatus(e.Status))
	return ve
}

// setExtension writes an X- property as text without a VALUE parameter.
func setExtension(ve *ical.Event, name, text string) {
	prop := ical.NewProp(name)
	prop.SetText(text)
	delete(prop.Params, ical.ParamValue)
	ve.Props.Set(prop)
}

// setRecurrenceID writes rid as a DATE-TIME when it parses as one and as
// the raw value otherwise.
func setRecurrenceID(ve *ical.Event, rid string) {
	for _, layout := range []string{time.RFC3339, "20060102T150405Z"} {
		if t, err := time.Parse(layout, rid); err == nil {
			ve.Props.SetDateTime(ical.PropRecurrenceID, t.UTC())
			return
		}
	}
	prop := ical.NewProp(ical.PropRecurrenceID)
	prop.Value = rid
	ve.Props.Set(prop)
}

func eventStatus(s models.ReviewStatus) string {
	switch s {
	case models.StatusApproved:
		return "CONFIRMED"
	case models.StatusRejected:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}
