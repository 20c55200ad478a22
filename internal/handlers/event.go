package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/services"
	"github.com/gatherly/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

// EventHandler provides the event and subscription endpoints.
type EventHandler struct {
	events *services.EventService
	subs   *services.SubscriptionService
}

func NewEventHandler(events *services.EventService, subs *services.SubscriptionService) *EventHandler {
	return &EventHandler{events: events, subs: subs}
}

// EventRouter registers the event routes. Every route requires a bearer
// credential; role gates are applied per route.
func EventRouter(
	r chi.Router,
	events *services.EventService,
	subs *services.SubscriptionService,
	authenticate func(http.Handler) http.Handler,
) {
	handler := NewEventHandler(events, subs)

	organiser := RequireRole(auth.RoleOrganiser)
	participant := RequireRole(auth.RoleParticipant)

	r.Use(authenticate)
	r.With(organiser).Post("/", handler.Create)
	r.Get("/", handler.ListPublic)
	r.With(organiser).Get("/own", handler.ListOwn)
	r.With(participant).Get("/subscriptions", handler.ListSubscriptions)
	r.Route("/{eventID}", func(r chi.Router) {
		r.With(organiser).Put("/", handler.Update)
		r.With(organiser).Delete("/", handler.Delete)
		r.With(organiser).Get("/subscribers", handler.Subscribers)
		r.With(participant).Get("/subscribe", handler.Subscribe)
		r.With(participant).Get("/unsubscribe", handler.Unsubscribe)
	})
}

type EventRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required"`
}

type EventEnvelope struct {
	Status  bool          `json:"status"`
	Message string        `json:"message"`
	Event   EventResource `json:"event"`
}

type SubscribeEnvelope struct {
	Status    bool          `json:"status"`
	Message   string        `json:"message"`
	Event     EventResource `json:"event"`
	EmailSent bool          `json:"email_sent"`
}

type EventListResponse struct {
	Data []EventResource `json:"data"`
}

type SubscribersResponse struct {
	Event       EventResource  `json:"event"`
	Subscribers []UserResource `json:"subscribers"`
}

// Create publishes a new event owned by the authenticated organiser.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}

	req, fields := parseEventRequest(r)
	if fields != nil {
		writeValidationFailure(w, fields)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeValidationFailure(w, []FieldError{{Field: "date", Message: `"date" must be a valid date`}})
		return
	}

	event, err := h.events.Create(r.Context(), user.ID, req.Title, req.Description, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	writeJSON(w, http.StatusOK, EventEnvelope{
		Status:  true,
		Message: "Event created successfully",
		Event:   newEventResource(event),
	})
}

// ListPublic lists all events regardless of owner.
func (h *EventHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListPublic(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Data: newEventCollection(events)})
}

// ListOwn lists exactly the authenticated organiser's events.
func (h *EventHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}

	events, err := h.events.ListOwn(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Data: newEventCollection(events)})
}

// Update replaces an owned event's title, description, and date.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}
	eventID, err := parseEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	req, fields := parseEventRequest(r)
	if fields != nil {
		writeValidationFailure(w, fields)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeValidationFailure(w, []FieldError{{Field: "date", Message: `"date" must be a valid date`}})
		return
	}

	event, err := h.events.Update(r.Context(), eventID, user.ID, req.Title, req.Description, date)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, EventEnvelope{
		Status:  true,
		Message: "Event updated successfully",
		Event:   newEventResource(event),
	})
}

// Delete removes an owned event and returns its prior representation.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}
	eventID, err := parseEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	event, err := h.events.Delete(r.Context(), eventID, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	writeJSON(w, http.StatusOK, EventEnvelope{
		Status:  true,
		Message: "Event deleted successfully",
		Event:   newEventResource(event),
	})
}

// Subscribers lists an owned event's subscribers, newest first.
func (h *EventHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}
	eventID, err := parseEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	event, subscribers, err := h.events.Subscribers(r.Context(), eventID, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list subscribers")
		return
	}

	writeJSON(w, http.StatusOK, SubscribersResponse{
		Event:       newEventResource(event),
		Subscribers: newUserCollection(subscribers),
	})
}

// Subscribe adds the authenticated participant to an event.
func (h *EventHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}
	eventID, err := parseEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	event, emailSent, err := h.subs.Subscribe(r.Context(), eventID, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeNotFound(w)
		case errors.Is(err, services.ErrAlreadySubscribed):
			writeError(w, http.StatusBadRequest, "Already subscribed to this event")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		}
		return
	}

	writeJSON(w, http.StatusOK, SubscribeEnvelope{
		Status:    true,
		Message:   "Subscribed successfully",
		Event:     newEventResource(event),
		EmailSent: emailSent,
	})
}

// Unsubscribe removes the authenticated participant from an event.
func (h *EventHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}
	eventID, err := parseEventID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	event, emailSent, err := h.subs.Unsubscribe(r.Context(), eventID, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeNotFound(w)
		case errors.Is(err, services.ErrNotSubscribed):
			writeError(w, http.StatusBadRequest, "Not subscribed to this event")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to unsubscribe")
		}
		return
	}

	writeJSON(w, http.StatusOK, SubscribeEnvelope{
		Status:    true,
		Message:   "Unsubscribed successfully",
		Event:     newEventResource(event),
		EmailSent: emailSent,
	})
}

// ListSubscriptions lists the events the participant is subscribed to,
// newest first.
func (h *EventHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
		return
	}

	events, err := h.subs.ListForSubscriber(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Data: newEventCollection(events)})
}

func parseEventRequest(r *http.Request) (EventRequest, []FieldError) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return EventRequest{}, []FieldError{{Field: "", Message: "invalid request payload"}}
	}
	if fields := checkStruct(req); fields != nil {
		return EventRequest{}, fields
	}
	return req, nil
}

func parseEventID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "eventID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid event id")
	}
	return id, nil
}
