package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/snakr/snakr-api/middleware"
	"github.com/snakr/snakr-api/services"
)

type jsonResponse map[string]interface{}

var (
	pkgLogger   = slog.Default()
	development bool
)

// Init задаёт логгер пакета и режим: в development конверт ошибки дополняется
// полем details с технической причиной.
func Init(logger *slog.Logger, dev bool) {
	pkgLogger = logger
	development = dev
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: dst не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// errorEnvelope — единый формат тела ошибки. message говорит, что случилось,
// next_steps — что клиенту с этим делать, request_id связывает ответ с логами.
type errorEnvelope struct {
	Message   string `json:"message"`
	NextSteps string `json:"next_steps"`
	RequestID string `json:"request_id"`
	Details   string `json:"details,omitempty"`
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message, nextSteps string) {
	errorResponseWithDetails(w, r, status, message, nextSteps, nil)
}

func errorResponseWithDetails(w http.ResponseWriter, r *http.Request, status int, message, nextSteps string, cause error) {
	env := errorEnvelope{
		Message:   message,
		NextSteps: nextSteps,
		RequestID: middleware.GetRequestID(r.Context()),
	}
	if development && cause != nil {
		env.Details = cause.Error()
	}

	if err := writeJSON(w, status, jsonResponse{"error": env}, nil); err != nil {
		pkgLogger.Error("failed to write error response",
			slog.Any("error", err),
			slog.String("request_id", env.RequestID))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	pkgLogger.Error("internal server error",
		slog.Any("error", err),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	errorResponseWithDetails(w, r, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request",
		"Try again later. If the problem persists, report the request_id.",
		err)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error(),
		"Fix the request body and try again.")
}

func validationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve validation.Errors
	if errors.As(err, &ve) {
		errorResponse(w, r, http.StatusUnprocessableEntity, ve.Error(),
			"Correct the listed fields and resubmit.")
		return
	}
	errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
		"Correct the request and resubmit.")
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusNotFound, message,
		"Check the identifier and try again.")
}

// UnauthorizedResponse используется и обработчиками, и middleware
// аутентификации, чтобы конверт был единым.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusUnauthorized,
		"authentication required",
		"Sign in again to obtain a fresh access token.")
}

// RateLimitResponse пишет 429; Retry-After выставляет middleware.
func RateLimitResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusTooManyRequests,
		"too many requests",
		"Slow down and retry after the interval in the Retry-After header.")
}

// NotFoundRoute — ответ для незарегистрированных маршрутов.
func NotFoundRoute(w http.ResponseWriter, r *http.Request) {
	notFoundResponse(w, r, "the requested resource could not be found")
}

// MethodNotAllowed — ответ для известного пути с неверным методом.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusMethodNotAllowed,
		"method not allowed for this resource",
		"Check the HTTP method and try again.")
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
// message берётся из цепочки ошибки, поэтому обёртки вида "already accepted"
// доходят до клиента.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// 404: ресурс не найден или скрыт от не-участника.
	case errors.Is(err, services.ErrHouseholdNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrReceiptNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrUserNotFound):
		notFoundResponse(w, r, err.Error())

	// 403: доступ есть, прав не хватает.
	case errors.Is(err, services.ErrNotHouseholdMember):
		errorResponse(w, r, http.StatusForbidden, err.Error(),
			"Ask a household admin to invite you.")
	case errors.Is(err, services.ErrAdminRequired):
		errorResponse(w, r, http.StatusForbidden, err.Error(),
			"Ask a household admin to perform this action.")
	// 422: запрос понятен, но нарушает бизнес-правило.
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrNameTooLong),
		errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidItemState),
		errors.Is(err, services.ErrInvalidQuickAction):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Correct the request and resubmit.")
	case errors.Is(err, services.ErrAlreadyMember):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Open the household from your list instead.")
	case errors.Is(err, services.ErrInvitationPendingExists):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Wait for the existing invitation to be accepted or to expire.")
	case errors.Is(err, services.ErrInvitationNotPending):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Ask a household admin for a new invitation.")
	case errors.Is(err, services.ErrInvitationExpired):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Ask a household admin for a new invitation.")
	case errors.Is(err, services.ErrInvitationEmailMismatch):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Sign in with the account the invitation was sent to.")
	case errors.Is(err, services.ErrLastAdmin):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Promote another member to admin first.")
	case errors.Is(err, services.ErrUploadsDisabled):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error(),
			"Receipt uploads are unavailable on this server.")

	// Всё остальное — 500.
	default:
		serverErrorResponse(w, r, err)
	}
}

// currentUserID достаёт идентичность из контекста. Отсутствие claims за
// Authenticate-middleware — ошибка маршрутизации, отвечаем 401.
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		UnauthorizedResponse(w, r)
		return "", false
	}
	return claims.UserID, true
}
