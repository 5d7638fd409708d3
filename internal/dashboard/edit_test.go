package dashboard

import (
	"context"
	"errors"
	"testing"

	"eventreview/internal/models"
)

func editFixture(t *testing.T) (*EventManager, *fakeBackend, *recordingPresenter) {
	t.Helper()
	return newLoadedManager(t,
		models.Event{
			UID:          "a",
			StartTime:    at("2024-01-01T10:00:00Z"),
			Organization: "Bike Club",
			Type:         "social",
			Location:     "TBD",
		},
		models.Event{UID: "a", RecurrenceID: "r2", StartTime: at("2024-01-08T10:00:00Z"), Type: "social"},
	)
}

func TestEditLifecycleSave(t *testing.T) {
	m, fb, _ := editFixture(t)
	key := models.EventKey{UID: "a"}
	ctx := context.Background()

	original, err := m.StartEdit(key, FieldOrganization)
	if err != nil {
		t.Fatalf("StartEdit: %v", err)
	}
	if original != "Bike Club" {
		t.Errorf("snapshot = %q", original)
	}
	if m.EditStateOf(key, FieldOrganization) != Editing {
		t.Fatalf("state = %v, want editing", m.EditStateOf(key, FieldOrganization))
	}

	if err := m.SetDraft(key, FieldOrganization, "Walk Club"); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	if e, _ := m.Event(key); e.Organization != "Bike Club" {
		t.Error("draft leaked into the event before saving")
	}

	if err := m.SaveEdit(ctx, key, FieldOrganization); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	if m.EditStateOf(key, FieldOrganization) != Viewing {
		t.Error("editor still open after save")
	}
	if e, _ := m.Event(key); e.Organization != "Walk Club" {
		t.Errorf("organization = %q after save", e.Organization)
	}
	if len(fb.patches) != 1 || *fb.patches[0].Req.Organization != "Walk Club" {
		t.Errorf("patches = %+v", fb.patches)
	}
}

func TestEditSaveFailureStillReturnsToViewing(t *testing.T) {
	m, fb, p := editFixture(t)
	key := models.EventKey{UID: "a"}
	fb.updateErr = errors.New("boom")

	m.StartEdit(key, FieldType)
	m.SetDraft(key, FieldType, "protest")
	if err := m.SaveEdit(context.Background(), key, FieldType); err == nil {
		t.Fatal("expected save error")
	}

	if m.EditStateOf(key, FieldType) != Viewing {
		t.Error("editor still open after failed save")
	}
	if e, _ := m.Event(key); e.Type != "social" {
		t.Errorf("type = %q after failed save", e.Type)
	}
	if p.last().Level != LevelError {
		t.Errorf("notification = %+v", p.last())
	}
}

func TestEditCancelMakesNoCall(t *testing.T) {
	m, fb, _ := editFixture(t)
	key := models.EventKey{UID: "a"}

	m.StartEdit(key, FieldLocation)
	m.SetDraft(key, FieldLocation, "Somewhere else")
	if err := m.CancelEdit(key, FieldLocation); err != nil {
		t.Fatalf("CancelEdit: %v", err)
	}

	if fb.writes() != 0 {
		t.Errorf("backend writes = %d, want 0", fb.writes())
	}
	if m.EditStateOf(key, FieldLocation) != Viewing {
		t.Error("editor still open after cancel")
	}
	if e, _ := m.Event(key); e.DisplayLocation() != "TBD" {
		t.Errorf("location = %q after cancel", e.DisplayLocation())
	}

	if snapshot, _ := m.StartEdit(key, FieldLocation); snapshot != "TBD" {
		t.Errorf("reopened editor snapshot = %q, want TBD", snapshot)
	}
}

func TestEditFieldsAreIndependent(t *testing.T) {
	m, _, _ := editFixture(t)
	key := models.EventKey{UID: "a"}

	m.StartEdit(key, FieldOrganization)
	m.StartEdit(key, FieldType)
	m.CancelEdit(key, FieldOrganization)

	if m.EditStateOf(key, FieldType) != Editing {
		t.Error("cancelling organization closed the type editor")
	}
	if len(m.Snapshot().Edits) != 1 {
		t.Errorf("open editors = %+v", m.Snapshot().Edits)
	}
}

func TestEditLocationSaveSemantics(t *testing.T) {
	m, fb, _ := editFixture(t)
	key := models.EventKey{UID: "a"}
	ctx := context.Background()

	m.StartEdit(key, FieldLocation)
	m.SetDraft(key, FieldLocation, "")
	if err := m.SaveEdit(ctx, key, FieldLocation); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	if fb.writes() != 0 {
		t.Errorf("empty location without overlay made %d calls", fb.writes())
	}

	m.StartEdit(key, FieldLocation)
	m.SetDraft(key, FieldLocation, " Elm St ")
	m.SaveEdit(ctx, key, FieldLocation)
	if e, _ := m.Event(key); e.DisplayLocation() != "Elm St" {
		t.Errorf("location = %q", e.DisplayLocation())
	}

	snapshot, _ := m.StartEdit(key, FieldLocation)
	if snapshot != "Elm St" {
		t.Errorf("snapshot = %q, want overlay value", snapshot)
	}
	m.SetDraft(key, FieldLocation, "")
	m.SaveEdit(ctx, key, FieldLocation)
	if len(fb.overlayDrops) != 1 {
		t.Errorf("overlay drops = %d, want 1", len(fb.overlayDrops))
	}
	if e, _ := m.Event(key); e.DisplayLocation() != "TBD" {
		t.Errorf("location = %q after clearing overlay", e.DisplayLocation())
	}
}

func TestEditErrors(t *testing.T) {
	m, _, _ := editFixture(t)
	ctx := context.Background()

	if _, err := m.StartEdit(models.EventKey{UID: "missing"}, FieldType); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("StartEdit on missing event: %v", err)
	}
	if _, err := m.StartEdit(models.EventKey{UID: "a"}, Field("summary")); !errors.Is(err, ErrUnknownField) {
		t.Errorf("StartEdit on unknown field: %v", err)
	}
	if err := m.SetDraft(models.EventKey{UID: "a"}, FieldType, "x"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SetDraft without StartEdit: %v", err)
	}
	if err := m.SaveEdit(ctx, models.EventKey{UID: "a"}, FieldType); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SaveEdit without StartEdit: %v", err)
	}
	if err := m.CancelEdit(models.EventKey{UID: "a"}, FieldType); !errors.Is(err, ErrNotEditing) {
		t.Errorf("CancelEdit without StartEdit: %v", err)
	}
}

func TestParseField(t *testing.T) {
	for _, name := range []string{"organization", "type", "location"} {
		if _, err := ParseField(name); err != nil {
			t.Errorf("ParseField(%q): %v", name, err)
		}
	}
	if _, err := ParseField("rejected"); err == nil {
		t.Error("ParseField(rejected) succeeded")
	}
}
