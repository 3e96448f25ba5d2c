package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/services"
)

type HouseholdHandler struct {
	householdService services.HouseholdService
}

func NewHouseholdHandler(householdService services.HouseholdService) *HouseholdHandler {
	return &HouseholdHandler{householdService: householdService}
}

type householdInput struct {
	Name string `json:"name"`
}

func (i householdInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (h *HouseholdHandler) CreateHouseholdHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var input householdInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	household, err := h.householdService.CreateHousehold(r.Context(), input.Name, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"household": household}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HouseholdHandler) GetHouseholdHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	household, err := h.householdService.GetHouseholdByID(r.Context(), householdID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"household": household}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HouseholdHandler) ListHouseholdsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	households, err := h.householdService.ListUserHouseholds(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"households": households}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HouseholdHandler) UpdateHouseholdHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	var input householdInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	household, err := h.householdService.UpdateHousehold(r.Context(), householdID, input.Name, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"household": household}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HouseholdHandler) DeleteHouseholdHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	if err := h.householdService.DeleteHousehold(r.Context(), householdID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type memberRoleInput struct {
	Role string `json:"role"`
}

func (i memberRoleInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Role, validation.Required, validation.In("admin", "member")),
	)
}

func (h *HouseholdHandler) UpdateMemberRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	targetUserID := chi.URLParam(r, "userID")

	var input memberRoleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	if err := h.householdService.UpdateMemberRole(r.Context(), householdID, userID, targetUserID, models.Role(input.Role)); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "member role updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *HouseholdHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	targetUserID := chi.URLParam(r, "userID")

	if err := h.householdService.RemoveMember(r.Context(), householdID, userID, targetUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
