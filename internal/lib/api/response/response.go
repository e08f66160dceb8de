package response

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"accounts_service/internal/lib/apperr"
	sl "accounts_service/internal/lib/logger"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string, details ...string) Response {
	return Response{
		Status:  StatusError,
		Error:   msg,
		Details: details,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var details []string

	for _, err := range errs {
		field := strings.ToLower(err.Field())

		switch err.ActualTag() {
		case "required":
			details = append(details, fmt.Sprintf("field %s is a required field", field))
		case "username":
			details = append(details, fmt.Sprintf("field %s may contain only letters, digits, '-' and '_' (up to 22)", field))
		case "email":
			details = append(details, fmt.Sprintf("field %s is not a valid email", field))
		case "uuid":
			details = append(details, fmt.Sprintf("field %s is not a valid id", field))
		case "max":
			details = append(details, fmt.Sprintf("field %s is too long", field))
		case "min":
			details = append(details, fmt.Sprintf("field %s is too short", field))
		default:
			details = append(details, fmt.Sprintf("field %s is not valid", field))
		}
	}

	return Error(apperr.MsgValidation, details...)
}

// NoCache keeps token-bearing responses out of shared caches.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// RenderError writes err with the status of its apperr kind. Errors without
// a kind are logged and reported as an internal error.
func RenderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if e, ok := apperr.As(err); ok {
		log.Info("request rejected",
			slog.String("kind", e.Kind.String()),
			slog.String("reason", e.Message),
		)

		render.Status(r, e.Kind.HTTPStatus())
		render.JSON(w, r, Error(e.Message, e.Details...))

		return
	}

	log.Error("request failed", sl.Err(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, Error(apperr.MsgInternal))
}

func DecodeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Error("failed to decode request body", sl.Err(err))

	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error("failed to decode request"))
}

func Invalid(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Info("invalid request", sl.Err(err))

	render.Status(r, http.StatusBadRequest)

	if errs, ok := err.(validator.ValidationErrors); ok {
		render.JSON(w, r, ValidationError(errs))
		return
	}

	render.JSON(w, r, Error(apperr.MsgValidation))
}
