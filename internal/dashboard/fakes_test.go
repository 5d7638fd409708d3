package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventreview/internal/backend"
	"eventreview/internal/logging"
	"eventreview/internal/models"
)

type fakeBackend struct {
	mu sync.Mutex

	events    []models.Event
	stats     models.Stats
	listErr   error
	statsErr  error
	updateErr error

	listCalls    int
	statsCalls   int
	patches      []patchCall
	statusCalls  []statusCall
	overlaySets  []overlayCall
	overlayDrops []overlayCall
}

type patchCall struct {
	UID string
	Req backend.PatchRequest
}

type statusCall struct {
	UID    string
	Status models.ReviewStatus
}

type overlayCall struct {
	UID   string
	Field string
	Req   backend.OverlayRequest
}

func (f *fakeBackend) ListEvents(ctx context.Context) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Event, len(f.events))
	for i, e := range f.events {
		out[i] = e.Clone()
	}
	return out, nil
}

func (f *fakeBackend) GetStats(ctx context.Context) (models.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeBackend) PatchEvent(ctx context.Context, uid string, req backend.PatchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{UID: uid, Req: req})
	return f.updateErr
}

func (f *fakeBackend) UpdateStatus(ctx context.Context, uid string, status models.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{UID: uid, Status: status})
	return f.updateErr
}

func (f *fakeBackend) SetOverlay(ctx context.Context, uid string, req backend.OverlayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlaySets = append(f.overlaySets, overlayCall{UID: uid, Field: req.Field, Req: req})
	return f.updateErr
}

func (f *fakeBackend) DeleteOverlay(ctx context.Context, uid, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlayDrops = append(f.overlayDrops, overlayCall{UID: uid, Field: field})
	return f.updateErr
}

func (f *fakeBackend) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches) + len(f.statusCalls) + len(f.overlaySets) + len(f.overlayDrops)
}

type notification struct {
	Level   Level
	Message string
}

type recordingPresenter struct {
	mu            sync.Mutex
	notifications []notification
	alerts        []string
}

func (p *recordingPresenter) Notify(level Level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, notification{level, message})
}

func (p *recordingPresenter) Alert(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
}

func (p *recordingPresenter) last() notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.notifications) == 0 {
		return notification{}
	}
	return p.notifications[len(p.notifications)-1]
}

var testToday = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// newLoadedManager returns a manager already loaded with events.
func newLoadedManager(t *testing.T, events ...models.Event) (*EventManager, *fakeBackend, *recordingPresenter) {
	t.Helper()
	fb := &fakeBackend{events: events, stats: models.Stats{"approved": 1.0}}
	p := &recordingPresenter{}
	m := NewEventManager(logging.Discard(), fb, p, Options{
		Location: time.UTC,
		Now:      func() time.Time { return testToday },
	})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, fb, p
}
