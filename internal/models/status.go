package models

import (
	"fmt"
	"strings"
)

// ReviewStatus is the review state of an event.
type ReviewStatus int

const (
	StatusPending ReviewStatus = iota
	StatusApproved
	StatusRejected
)

var reviewStatusNames = map[ReviewStatus]string{
	StatusPending:  "pending",
	StatusApproved: "approved",
	StatusRejected: "rejected",
}

func (s ReviewStatus) String() string {
	if name, ok := reviewStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ReviewStatus(%d)", int(s))
}

// Rejected reports whether s is the rejected state.
func (s ReviewStatus) Rejected() bool {
	return s == StatusRejected
}

// ParseReviewStatus parses a status name. "reviewed" is the backend's
// tri-state spelling of approved.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved", "reviewed":
		return StatusApproved, nil
	case "rejected":
		return StatusRejected, nil
	}
	return 0, fmt.Errorf("unknown review status %q", s)
}

// StatusFilter restricts the events shown by review state. The zero value shows everything.
type StatusFilter struct {
	status *ReviewStatus
}

// FilterAll is the unset filter.
var FilterAll = StatusFilter{}

// FilterBy returns a filter that passes only events in status s.
func FilterBy(s ReviewStatus) StatusFilter {
	return StatusFilter{status: &s}
}

// ParseStatusFilter parses "" or "all" as the unset filter, otherwise a status name.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	}
	status, err := ParseReviewStatus(s)
	if err != nil {
		return FilterAll, err
	}
	return FilterBy(status), nil
}

// IsSet reports whether the filter restricts anything.
func (f StatusFilter) IsSet() bool {
	return f.status != nil
}

// Allows reports whether an event in status s passes the filter.
func (f StatusFilter) Allows(s ReviewStatus) bool {
	return f.status == nil || *f.status == s
}

func (f StatusFilter) String() string {
	if f.status == nil {
		return ""
	}
	return f.status.String()
}
