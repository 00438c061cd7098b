package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nust-timetable/timetable-manager/backend/internal/placement"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("internal server error", "request_id", requestIDFrom(r), "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, validationErrors[0].Translate(h.translator))
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, msg)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "internal server error",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// timetableError maps an error returned by the timetable service onto a response.
func (h *Handler) timetableError(w http.ResponseWriter, r *http.Request, err error) {
	var rejErr *placement.RejectionError

	switch {
	case errors.As(err, &rejErr):
		h.writeJSON(w, r, http.StatusUnprocessableEntity, Response{
			Success: false,
			Message: rejErr.Error(),
			Data:    map[string]any{"rejections": rejErr.Rejections},
		})
	case errors.Is(err, timetable.ErrInvalidPayload):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, timetable.ErrForbidden):
		h.errorResponse(w, r, http.StatusForbidden, "you do not have access to this schedule")
	case errors.Is(err, timetable.ErrScheduleNotFound):
		h.errorResponse(w, r, http.StatusNotFound, "schedule not found")
	case errors.Is(err, timetable.ErrVersionNotFound):
		h.errorResponse(w, r, http.StatusNotFound, "schedule version not found")
	case errors.Is(err, timetable.ErrSaveFailed):
		h.errorResponse(w, r, http.StatusInternalServerError, "failed to save schedule")
	default:
		h.internalServerError(w, r, err)
	}
}
