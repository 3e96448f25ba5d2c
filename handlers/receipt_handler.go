package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snakr/snakr-api/services"
)

const maxReceiptUploadBytes = 10 << 20 // 10MB

type ReceiptHandler struct {
	receiptService services.ReceiptService
}

func NewReceiptHandler(receiptService services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// UploadReceiptHandler принимает multipart-поле image и отвечает 202:
// файл сохранён, разбор чека выполняется отдельным процессом позже.
func (h *ReceiptHandler) UploadReceiptHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptUploadBytes)
	if err := r.ParseMultipartForm(maxReceiptUploadBytes); err != nil {
		badRequestResponse(w, r, errors.New("request must be multipart/form-data with an image field"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, errors.New("image field is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	receipt, err := h.receiptService.UploadReceipt(r.Context(), householdID, userID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"receipt": receipt,
		"message": "receipt stored; parsing is not yet available",
	}
	if err := writeJSON(w, http.StatusAccepted, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReceiptHandler) GetReceiptHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")
	receiptID := chi.URLParam(r, "receiptID")

	receipt, err := h.receiptService.GetReceiptByID(r.Context(), householdID, receiptID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"receipt": receipt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ReceiptHandler) ListReceiptsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	householdID := chi.URLParam(r, "householdID")

	receipts, err := h.receiptService.ListHouseholdReceipts(r.Context(), householdID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"receipts": receipts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
