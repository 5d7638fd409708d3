package dashboard

import (
	"reflect"
	"testing"
	"time"

	"eventreview/internal/models"
)

func groupDates(groups []models.DateGroup) []string {
	var dates []string
	for _, g := range groups {
		dates = append(dates, g.Date)
	}
	return dates
}

func TestGroupingExample(t *testing.T) {
	m, _, _ := newLoadedManager(t,
		models.Event{UID: "a", StartTime: at("2024-01-01T10:00:00Z")},
		models.Event{UID: "b", StartTime: at("2024-01-01T11:00:00Z")},
		models.Event{UID: "c", StartTime: at("2024-01-05T09:00:00Z")},
	)

	groups := m.GroupedEvents()
	if got := groupDates(groups); !reflect.DeepEqual(got, []string{"2024-01-01", "2024-01-05"}) {
		t.Fatalf("dates = %v", got)
	}
	if len(groups[0].Events) != 2 || len(groups[1].Events) != 1 {
		t.Errorf("group sizes = %d, %d", len(groups[0].Events), len(groups[1].Events))
	}

	m.SetHideSingleEvents(true)
	if got := groupDates(m.GroupedEvents()); !reflect.DeepEqual(got, []string{"2024-01-01"}) {
		t.Errorf("with hideSingleEvents dates = %v", got)
	}
}

func TestGroupOrderByDistanceFromToday(t *testing.T) {
	events := []models.Event{
		{UID: "far-future", StartTime: at("2024-02-01T10:00:00Z")},
		{UID: "past", StartTime: at("2023-12-29T10:00:00Z")},
		{UID: "tomorrow", StartTime: at("2024-01-02T10:00:00Z")},
		{UID: "today", StartTime: at("2024-01-01T23:00:00Z")},
		{UID: "yesterday", StartTime: at("2023-12-31T10:00:00Z")},
	}

	groups := GroupEventsByDate(events, testToday, time.UTC)
	want := []string{"2024-01-01", "2024-01-02", "2023-12-31", "2023-12-29", "2024-02-01"}
	if got := groupDates(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}

	for i := 1; i < len(groups); i++ {
		prev := dayDistance(groups[i-1].Date, "2024-01-01")
		cur := dayDistance(groups[i].Date, "2024-01-01")
		if prev > cur {
			t.Errorf("group %s (distance %d) precedes %s (distance %d)", groups[i-1].Date, prev, groups[i].Date, cur)
		}
	}
}

func TestGroupOrderForDistantDates(t *testing.T) {
	events := []models.Event{
		{UID: "unset", StartTime: time.Time{}},
		{UID: "old", StartTime: at("1500-06-01T10:00:00Z")},
		{UID: "future", StartTime: at("2400-01-01T10:00:00Z")},
		{UID: "today", StartTime: at("2024-01-01T10:00:00Z")},
	}

	groups := GroupEventsByDate(events, testToday, time.UTC)
	want := []string{"2024-01-01", "2400-01-01", "1500-06-01", "0001-01-01"}
	if got := groupDates(groups); !reflect.DeepEqual(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}
	if d := dayDistance("0001-01-01", "2024-01-01"); d != 738885 {
		t.Errorf("distance to year 1 = %d, want 738885", d)
	}
}

func TestGroupTiesKeepInputOrder(t *testing.T) {
	events := []models.Event{
		{UID: "after", StartTime: at("2024-01-02T10:00:00Z")},
		{UID: "before", StartTime: at("2023-12-31T10:00:00Z")},
	}
	if got := groupDates(GroupEventsByDate(events, testToday, time.UTC)); !reflect.DeepEqual(got, []string{"2024-01-02", "2023-12-31"}) {
		t.Errorf("dates = %v", got)
	}

	events[0], events[1] = events[1], events[0]
	if got := groupDates(GroupEventsByDate(events, testToday, time.UTC)); !reflect.DeepEqual(got, []string{"2023-12-31", "2024-01-02"}) {
		t.Errorf("swapped dates = %v", got)
	}
}

func TestGroupingPartitionsFilteredEvents(t *testing.T) {
	events := []models.Event{
		{UID: "a", StartTime: at("2024-01-01T10:00:00Z"), Status: models.StatusApproved},
		{UID: "b", StartTime: at("2024-01-03T10:00:00Z"), Status: models.StatusRejected},
		{UID: "c", StartTime: at("2024-01-03T12:00:00Z"), Status: models.StatusApproved},
		{UID: "d", StartTime: at("2024-01-07T12:00:00Z"), Status: models.StatusPending},
		{UID: "e", StartTime: at("2023-11-07T12:00:00Z"), Status: models.StatusApproved},
	}

	for _, filter := range []models.StatusFilter{models.FilterAll, models.FilterBy(models.StatusApproved), models.FilterBy(models.StatusRejected)} {
		groups := filterEvents(events, filter, false, testToday, time.UTC)

		seen := map[string]int{}
		for _, g := range groups {
			for _, e := range g.Events {
				seen[e.UID]++
				if e.Date(time.UTC) != g.Date {
					t.Errorf("event %s (%s) in group %s", e.UID, e.Date(time.UTC), g.Date)
				}
			}
		}
		for _, e := range events {
			want := 0
			if filter.Allows(e.Status) {
				want = 1
			}
			if seen[e.UID] != want {
				t.Errorf("filter %q: event %s appears %d times, want %d", filter, e.UID, seen[e.UID], want)
			}
		}
	}
}

func TestHideSingleRemovesExactlySingletons(t *testing.T) {
	events := []models.Event{
		{UID: "a", StartTime: at("2024-01-01T10:00:00Z")},
		{UID: "b", StartTime: at("2024-01-02T10:00:00Z")},
		{UID: "c", StartTime: at("2024-01-02T11:00:00Z")},
		{UID: "d", StartTime: at("2024-01-03T10:00:00Z")},
	}

	all := filterEvents(events, models.FilterAll, false, testToday, time.UTC)
	hidden := filterEvents(events, models.FilterAll, true, testToday, time.UTC)

	var want []string
	for _, g := range all {
		if len(g.Events) != 1 {
			want = append(want, g.Date)
		}
	}
	if got := groupDates(hidden); !reflect.DeepEqual(got, want) {
		t.Errorf("hidden dates = %v, want %v", got, want)
	}
}

func TestStatusFilterIsIdempotent(t *testing.T) {
	m, _, _ := newLoadedManager(t,
		models.Event{UID: "a", StartTime: at("2024-01-01T10:00:00Z"), Status: models.StatusRejected},
		models.Event{UID: "b", StartTime: at("2024-01-01T11:00:00Z"), Status: models.StatusApproved},
		models.Event{UID: "c", StartTime: at("2024-01-02T11:00:00Z"), Status: models.StatusRejected},
	)

	m.SetStatusFilter(models.FilterBy(models.StatusRejected))
	once := m.GroupedEvents()
	m.FilterEvents()
	twice := m.GroupedEvents()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filtering twice changed the result:\n%v\n%v", once, twice)
	}
	if m.VisibleEvents() != 2 {
		t.Errorf("VisibleEvents() = %d, want 2", m.VisibleEvents())
	}
	if m.TotalEvents() != 3 {
		t.Errorf("TotalEvents() = %d, want 3", m.TotalEvents())
	}
}

func TestGroupsUseConfiguredLocation(t *testing.T) {
	chicago := time.FixedZone("CST", -6*60*60)
	events := []models.Event{{UID: "late", StartTime: at("2024-01-02T03:00:00Z")}}

	groups := GroupEventsByDate(events, testToday, chicago)
	if groups[0].Date != "2024-01-01" {
		t.Errorf("date = %s, want 2024-01-01 in CST", groups[0].Date)
	}
}

func TestFormatDate(t *testing.T) {
	today := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	testCases := map[string]string{
		"2024-01-01": "Today",
		"2024-01-02": "Tomorrow",
		"2024-01-05": "Friday, January 5, 2024",
		"garbage":    "garbage",
	}
	for in, want := range testCases {
		if got := FormatDate(in, today); got != want {
			t.Errorf("FormatDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(at("2024-01-01T18:05:00Z"), time.UTC); got != "6:05 PM" {
		t.Errorf("FormatTime = %q", got)
	}
}
