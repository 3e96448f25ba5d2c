package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/snakr/snakr-api/models"
	"github.com/snakr/snakr-api/services"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

type createInvitationInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (i createInvitationInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Email, validation.Required, is.Email),
		validation.Field(&i.Role, validation.In("admin", "member")),
	)
}

func (h *InvitationHandler) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	var input createInvitationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	result, err := h.invitationService.CreateInvitation(r.Context(), householdID, userID, input.Email, models.Role(input.Role))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message":        fmt.Sprintf("Invitation sent to %s", result.InviteeEmail),
		"invitation_id":  result.InvitationID,
		"invitee_email":  result.InviteeEmail,
		"household_name": result.HouseholdName,
		"expires_at":     result.ExpiresAt,
		"invite_link":    result.InviteLink,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InvitationHandler) ListInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	invitations, err := h.invitationService.ListHouseholdInvitations(r.Context(), householdID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"invitations": invitations,
		"total":       len(invitations),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// invitationPreview возвращает полную запись приглашения вместе с токеном:
// вызывающий уже предъявил токен в URL, скрывать его в ответе не от кого.
type invitationPreview struct {
	*models.Invitation
	Token string `json:"token"`
}

// GetInvitationHandler — публичный предпросмотр приглашения по токену.
// Токен сам по себе служит доказательством права на чтение.
func (h *InvitationHandler) GetInvitationHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		badRequestResponse(w, r, errors.New("missing invitation token in URL path"))
		return
	}

	invitation, err := h.invitationService.GetInvitationByToken(r.Context(), token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	preview := invitationPreview{Invitation: invitation, Token: invitation.Token}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitation": preview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type acceptInvitationInput struct {
	Token string `json:"token"`
}

func (i acceptInvitationInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Token, validation.Required),
	)
}

func (h *InvitationHandler) AcceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var input acceptInvitationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.Validate(); err != nil {
		validationErrorResponse(w, r, err)
		return
	}

	result, err := h.invitationService.AcceptInvitation(r.Context(), input.Token, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message":        fmt.Sprintf("Welcome to %s!", result.HouseholdName),
		"household_id":   result.HouseholdID,
		"household_name": result.HouseholdName,
		"role":           result.Role,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
