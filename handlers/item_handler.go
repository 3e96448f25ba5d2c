package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/services"
)

type ItemHandler struct {
	itemService services.ItemService
}

func NewItemHandler(itemService services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

var knownItemStates = []interface{}{"plenty", "ok", "low", "almost_out", "out"}

type itemInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location"`
	State    string `json:"state"`
}

func (i itemInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&i.Category, validation.Length(0, 100)),
		validation.Field(&i.Location, validation.Length(0, 100)),
		validation.Field(&i.State, validation.In(knownItemStates...)),
	)
}

func (i itemInput) toServiceInput() services.ItemInput {
	return services.ItemInput{
		Name:     i.Name,
		Category: i.Category,
		Location: i.Location,
		State:    models.ItemState(i.State),
	}
}

func (h *ItemHandler) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	var input itemInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	item, err := h.itemService.CreateItem(r.Context(), householdID, userID, input.toServiceInput())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ItemHandler) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	itemID := chi.URLParam(r, "itemID")

	item, err := h.itemService.GetItemByID(r.Context(), householdID, itemID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListItemsHandler поддерживает фильтры category, location, state и полнотекстовый
// параметр q; q исключает остальные фильтры.
func (h *ItemHandler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	if query := r.URL.Query().Get("q"); query != "" {
		items, err := h.itemService.SearchItems(r.Context(), householdID, userID, query)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"items": items}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	filter := models.ItemFilter{
		Category: r.URL.Query().Get("category"),
		Location: r.URL.Query().Get("location"),
		State:    models.ItemState(r.URL.Query().Get("state")),
	}

	items, err := h.itemService.ListItems(r.Context(), householdID, userID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"items": items}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ItemHandler) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	itemID := chi.URLParam(r, "itemID")

	var input itemInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	item, err := h.itemService.UpdateItem(r.Context(), householdID, itemID, userID, input.toServiceInput())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ItemHandler) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	itemID := chi.URLParam(r, "itemID")

	if err := h.itemService.DeleteItem(r.Context(), householdID, itemID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type quickActionInput struct {
	Action string `json:"action"`
}

func (i quickActionInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Action, validation.Required,
			validation.In(services.QuickActionUsed, services.QuickActionRestocked, services.QuickActionRanOut)),
	)
}

func (h *ItemHandler) QuickActionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	itemID := chi.URLParam(r, "itemID")

	var input quickActionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	item, err := h.itemService.ApplyQuickAction(r.Context(), householdID, itemID, userID, input.Action)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ItemHandler) GetRestockListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	list, err := h.itemService.GetRestockList(r.Context(), householdID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"restock": list,
		"note":    "automatic restock prediction is not yet available",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
