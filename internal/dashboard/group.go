package dashboard

import (
	"sort"
	"time"

	"eventreview/internal/models"
)

// GroupEventsByDate buckets events by their start date in loc and orders the
// buckets by how many days they are from today, nearest first. Buckets at the
// same distance keep the order in which their first event appeared. Events are
// copied into the groups.
func GroupEventsByDate(events []models.Event, today time.Time, loc *time.Location) []models.DateGroup {
	index := make(map[string]int)
	var groups []models.DateGroup

	for _, e := range events {
		date := e.Date(loc)
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, models.DateGroup{Date: date})
		}
		groups[i].Events = append(groups[i].Events, e.Clone())
	}

	todayDate := today.In(loc).Format(models.DateLayout)
	sort.SliceStable(groups, func(a, b int) bool {
		return dayDistance(groups[a].Date, todayDate) < dayDistance(groups[b].Date, todayDate)
	})

	return groups
}

// dayDistance is the absolute number of calendar days between two YYYY-MM-DD dates.
func dayDistance(date, today string) int {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	t, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return 0
	}
	// Unix seconds rather than Sub, which saturates for dates centuries apart.
	days := int((d.Unix() - t.Unix()) / 86400)
	if days < 0 {
		return -days
	}
	return days
}

// filterEvents applies the status filter, groups the survivors by date and
// optionally drops single-event groups.
func filterEvents(events []models.Event, filter models.StatusFilter, hideSingle bool, today time.Time, loc *time.Location) []models.DateGroup {
	var filtered []models.Event
	for _, e := range events {
		if filter.Allows(e.Status) {
			filtered = append(filtered, e)
		}
	}

	groups := GroupEventsByDate(filtered, today, loc)
	if !hideSingle {
		return groups
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.Events) > 1 {
			kept = append(kept, g)
		}
	}
	return kept
}
