package backend

import (
	"errors"
	"fmt"

	"eventreview/internal/models"
)

// PatchRequest is the body of PATCH /api/events/{uid}. Exactly one of the
// optional fields is normally set.
type PatchRequest struct {
	RecurrenceID string  `json:"recurrence_id"`
	Rejected     *bool   `json:"rejected,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Type         *string `json:"type,omitempty"`
}

// StatusRequest is the body of PUT /api/events/{uid}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// OverlayRequest is the body of POST /api/events/{uid}/overlay.
type OverlayRequest struct {
	Field      string `json:"field"`
	Value      string `json:"value"`
	MergeLogic string `json:"mergeLogic"`
	Reason     string `json:"reason"`
}

// WireStatus is the status name the backend's status endpoint accepts.
func WireStatus(s models.ReviewStatus) string {
	if s == models.StatusApproved {
		return "reviewed"
	}
	return s.String()
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP error! status: %d", e.Method, e.Path, e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
