package dashboard

import (
	"time"

	"eventreview/internal/models"
)

// FormatDate renders a group date as "Today", "Tomorrow" or a long date such
// as "Monday, January 2, 2006". today is compared in its own location.
func FormatDate(date string, today time.Time) string {
	d, err := time.ParseInLocation(models.DateLayout, date, today.Location())
	if err != nil {
		return date
	}

	y, mo, dd := today.Date()
	start := time.Date(y, mo, dd, 0, 0, 0, 0, today.Location())
	switch {
	case d.Equal(start):
		return "Today"
	case d.Equal(start.AddDate(0, 0, 1)):
		return "Tomorrow"
	default:
		return d.Format("Monday, January 2, 2006")
	}
}

// FormatTime renders a start time as "3:04 PM" in loc.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}
