// Package caldav publishes reviewed events to a CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/emersion/go-webdav"
	davcal "github.com/emersion/go-webdav/caldav"
)

// customTransport adds Basic Auth and a User-Agent to each request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "eventreview/1.0")
	return t.Transport.RoundTrip(req)
}

// Store is the subset of a WebDAV client the publisher writes through.
type Store interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	RemoveAll(ctx context.Context, name string) error
}

// Connect builds an authenticated client for endpoint and finds the path of
// the calendar called calendarName.
func Connect(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (Store, string, error) {
	if endpoint == "" {
		return nil, "", fmt.Errorf("caldav url is not configured")
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := davcal.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create webdav client: %w", err)
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := findCalendar(ctx, caldavClient, calendarName)
	if err != nil {
		return nil, "", fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	logger.Info("Found CalDAV calendar", "path", calendarPath)

	return webdavClient, calendarPath, nil
}

// findCalendar walks principal, home set and calendars and returns the path
// of the calendar with the matching name.
func findCalendar(ctx context.Context, c *davcal.Client, name string) (string, error) {
	principalPath, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			if !strings.HasSuffix(cal.Path, "/") {
				return cal.Path + "/", nil
			}
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
