package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"eventreview/internal/models"
)

// Field names an inline-editable event field.
type Field string

const (
	FieldOrganization Field = "organization"
	FieldType         Field = "type"
	FieldLocation     Field = "location"
)

// ParseField validates an editable field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldOrganization, FieldType, FieldLocation:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// EditState is the state of one field's inline editor.
type EditState int

const (
	Viewing EditState = iota
	Editing
	Saving
)

func (s EditState) String() string {
	switch s {
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "viewing"
	}
}

var (
	ErrEventNotFound = errors.New("event not found")
	ErrUnknownField  = errors.New("unknown field")
	ErrNotEditing    = errors.New("field is not being edited")
)

type editSession struct {
	state    EditState
	original string
	draft    string
}

// EditView describes one open editor.
type EditView struct {
	UID          string `json:"uid"`
	RecurrenceID string `json:"recurrence_id"`
	Field        Field  `json:"field"`
	State        string `json:"state"`
	Original     string `json:"original"`
	Draft        string `json:"draft"`
}

func currentValue(e *models.Event, f Field) string {
	switch f {
	case FieldOrganization:
		return e.Organization
	case FieldType:
		return e.Type
	default:
		return e.DisplayLocation()
	}
}

// StartEdit opens the editor for one field, snapshotting its current value.
// Reopening an editor that is already open keeps its snapshot and draft.
func (m *EventManager) StartEdit(key models.EventKey, field Field) (string, error) {
	if _, err := ParseField(string(field)); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.findLocked(key)
	if e == nil {
		return "", fmt.Errorf("%w: %s %q", ErrEventNotFound, key.UID, key.RecurrenceID)
	}

	fields := m.edits[key]
	if fields == nil {
		fields = make(map[Field]*editSession)
		m.edits[key] = fields
	}
	if s, ok := fields[field]; ok && s.state != Viewing {
		return s.draft, nil
	}

	value := currentValue(e, field)
	fields[field] = &editSession{state: Editing, original: value, draft: value}
	return value, nil
}

// SetDraft replaces the pending value of an open editor.
func (m *EventManager) SetDraft(key models.EventKey, field Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessionLocked(key, field)
	if s == nil || s.state != Editing {
		return fmt.Errorf("%w: %s", ErrNotEditing, field)
	}
	s.draft = value
	return nil
}

// SaveEdit sends the draft to the backend and closes the editor whether or
// not the update succeeded. The update's error is returned.
func (m *EventManager) SaveEdit(ctx context.Context, key models.EventKey, field Field) error {
	m.mu.Lock()
	s := m.sessionLocked(key, field)
	if s == nil || s.state != Editing {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotEditing, field)
	}
	s.state = Saving
	draft := s.draft
	m.mu.Unlock()

	defer m.closeSession(key, field, s)

	switch field {
	case FieldOrganization:
		return m.UpdateEventOrganization(ctx, key.UID, key.RecurrenceID, draft)
	case FieldType:
		return m.UpdateEventType(ctx, key.UID, key.RecurrenceID, draft)
	default:
		return m.SaveLocation(ctx, key.UID, key.RecurrenceID, draft)
	}
}

// CancelEdit restores the snapshot and closes the editor without touching the backend.
func (m *EventManager) CancelEdit(key models.EventKey, field Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessionLocked(key, field)
	if s == nil || s.state != Editing {
		return fmt.Errorf("%w: %s", ErrNotEditing, field)
	}
	s.draft = s.original
	s.state = Viewing
	delete(m.edits[key], field)
	if len(m.edits[key]) == 0 {
		delete(m.edits, key)
	}
	return nil
}

// EditStateOf reports the editor state of one field.
func (m *EventManager) EditStateOf(key models.EventKey, field Field) EditState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sessionLocked(key, field); s != nil {
		return s.state
	}
	return Viewing
}

// Draft returns the pending value of an open editor.
func (m *EventManager) Draft(key models.EventKey, field Field) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sessionLocked(key, field); s != nil {
		return s.draft, true
	}
	return "", false
}

func (m *EventManager) sessionLocked(key models.EventKey, field Field) *editSession {
	return m.edits[key][field]
}

// closeSession drops s unless a reload has already replaced it.
func (m *EventManager) closeSession(key models.EventKey, field Field, s *editSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.state = Viewing
	if m.edits[key][field] != s {
		return
	}
	delete(m.edits[key], field)
	if len(m.edits[key]) == 0 {
		delete(m.edits, key)
	}
}

func (m *EventManager) editViewsLocked() []EditView {
	views := []EditView{}
	for key, fields := range m.edits {
		for field, s := range fields {
			views = append(views, EditView{
				UID:          key.UID,
				RecurrenceID: key.RecurrenceID,
				Field:        field,
				State:        s.state.String(),
				Original:     s.original,
				Draft:        s.draft,
			})
		}
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.UID != b.UID {
			return a.UID < b.UID
		}
		if a.RecurrenceID != b.RecurrenceID {
			return a.RecurrenceID < b.RecurrenceID
		}
		return a.Field < b.Field
	})
	return views
}
