package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/snakr/snakr-api/events"
	"github.com/snakr/snakr-api/services"
)

type EventHandler struct {
	eventService services.EventService
	access       services.AccessService
	hub          *events.Hub
	logger       *slog.Logger
}

func NewEventHandler(
	eventService services.EventService,
	access services.AccessService,
	hub *events.Hub,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		access:       access,
		hub:          hub,
		logger:       logger,
	}
}

func (h *EventHandler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			validationErrorResponse(w, r, err)
			return
		}
		limit = parsed
	}

	list, err := h.eventService.ListHouseholdEvents(r.Context(), householdID, userID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Источник проверяется CORS-слоем до апгрейда.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEventsHandler апгрейдит соединение в websocket и подписывает клиента
// на ленту домохозяйства. Членство проверяется до апгрейда: после него
// писать конверт ошибки уже некуда.
func (h *EventHandler) StreamEventsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	if _, err := h.access.Authorize(r.Context(), userID, householdID, ""); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("household_id", householdID),
			slog.Any("error", err))
		return
	}

	client := &events.Client{
		Hub:       h.hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Household: householdID,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
