package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"eventreview/internal/dashboard"
	"eventreview/internal/models"
)

type filterRequest struct {
	Status           *string `json:"status"`
	HideSingleEvents *bool   `json:"hide_single_events"`
}

type statusRequest struct {
	RecurrenceID string `json:"recurrence_id"`
	Status       string `json:"status"`
}

type organizationRequest struct {
	RecurrenceID string `json:"recurrence_id"`
	Organization string `json:"organization"`
}

type typeRequest struct {
	RecurrenceID string `json:"recurrence_id"`
	Type         string `json:"type"`
}

type locationRequest struct {
	RecurrenceID string `json:"recurrence_id"`
	Location     string `json:"location"`
}

type editRequest struct {
	RecurrenceID string `json:"recurrence_id"`
	Value        string `json:"value"`
}

type editResponse struct {
	Value string          `json:"value"`
	State dashboard.State `json:"state"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"loading": s.manager.Loading(),
		"events":  s.manager.TotalEvents(),
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, ErrUpstream, "Failed to load events. Please try again.")
		return
	}
	WriteJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Status != nil {
		f, err := models.ParseStatusFilter(*req.Status)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
			return
		}
		s.manager.SetStatusFilter(f)
	}
	if req.HideSingleEvents != nil {
		s.manager.SetHideSingleEvents(*req.HideSingleEvents)
	}
	WriteJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	status, err := models.ParseReviewStatus(req.Status)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
		return
	}
	s.respondUpdate(w, s.manager.UpdateEventStatus(r.Context(), uid, req.RecurrenceID, status))
}

func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	var req organizationRequest
	if !decode(w, r, &req) {
		return
	}
	s.respondUpdate(w, s.manager.UpdateEventOrganization(r.Context(), uid, req.RecurrenceID, req.Organization))
}

func (s *Server) updateType(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	var req typeRequest
	if !decode(w, r, &req) {
		return
	}
	s.respondUpdate(w, s.manager.UpdateEventType(r.Context(), uid, req.RecurrenceID, req.Type))
}

func (s *Server) saveLocation(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	s.respondUpdate(w, s.manager.SaveLocation(r.Context(), uid, req.RecurrenceID, req.Location))
}

func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	field, err := dashboard.ParseField(mux.Vars(r)["field"])
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
		return
	}
	var req editRequest
	if !decode(w, r, &req) {
		return
	}
	key := models.EventKey{UID: uid, RecurrenceID: req.RecurrenceID}

	var value string
	switch action := mux.Vars(r)["action"]; action {
	case "start":
		value, err = s.manager.StartEdit(key, field)
	case "draft":
		err = s.manager.SetDraft(key, field, req.Value)
		value = req.Value
	case "save":
		err = s.manager.SaveEdit(r.Context(), key, field)
	case "cancel":
		err = s.manager.CancelEdit(key, field)
	default:
		WriteError(w, http.StatusNotFound, ErrNotFound, "Unknown edit action: "+action)
		return
	}
	if err != nil {
		s.writeEditError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, editResponse{Value: value, State: s.manager.Snapshot()})
}

type editStatus struct {
	State string `json:"state"`
	Draft string `json:"draft"`
	Open  bool   `json:"open"`
}

// getEdit reports one editor's state and draft. The occurrence is selected
// with the recurrence_id query parameter.
func (s *Server) getEdit(w http.ResponseWriter, r *http.Request) {
	uid, ok := eventUID(w, r)
	if !ok {
		return
	}
	field, err := dashboard.ParseField(mux.Vars(r)["field"])
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
		return
	}
	key := models.EventKey{UID: uid, RecurrenceID: r.URL.Query().Get("recurrence_id")}
	if _, found := s.manager.Event(key); !found {
		WriteError(w, http.StatusNotFound, ErrNotFound, "Event not found")
		return
	}

	draft, open := s.manager.Draft(key, field)
	WriteJSON(w, http.StatusOK, editStatus{
		State: s.manager.EditStateOf(key, field).String(),
		Draft: draft,
		Open:  open,
	})
}

func (s *Server) writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrEventNotFound):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
	case errors.Is(err, dashboard.ErrUnknownField):
		WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
	case errors.Is(err, dashboard.ErrNotEditing):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
	default:
		WriteError(w, http.StatusBadGateway, ErrUpstream, err.Error())
	}
}

// respondUpdate replies to a write. The user has already been notified of
// the outcome, so a failure only maps to a status code here.
func (s *Server) respondUpdate(w http.ResponseWriter, err error) {
	if err != nil {
		WriteError(w, http.StatusBadGateway, ErrUpstream, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, s.manager.Snapshot())
}

func eventUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, err := url.PathUnescape(mux.Vars(r)["uid"])
	if err != nil || uid == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid event uid")
		return "", false
	}
	return uid, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
