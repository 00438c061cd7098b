package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/export"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
)

type saveItemRequest struct {
	CourseID  int64          `json:"course_id" validate:"required,min=1"`
	Day       domain.Weekday `json:"day" validate:"required,min=1,max=5"`
	Time      string         `json:"time" validate:"required"`
	ClassType string         `json:"class_type" validate:"required,oneof=theory practical"`
	Duration  int32          `json:"duration" validate:"required,oneof=1 2"`
	VenueID   *int64         `json:"venue_id" validate:"omitempty,min=1"`
	Lecturer  string         `json:"lecturer" validate:"max=100"`
	Notes     string         `json:"notes" validate:"max=500"`
}

type saveScheduleRequest struct {
	ScheduleID *int64            `json:"schedule_id" validate:"omitempty,min=1"`
	Name       string            `json:"name" validate:"required,max=100"`
	Semester   int32             `json:"semester" validate:"required,oneof=1 2"`
	Year       int32             `json:"year" validate:"required,min=2000,max=2100"`
	Items      []saveItemRequest `json:"items" validate:"required,dive"`
}

type saveScheduleResponse struct {
	Response
	ScheduleID int64 `json:"schedule_id"`
	Version    int32 `json:"version"`
}

func (h *Handler) SaveSchedule(w http.ResponseWriter, r *http.Request) {
	var req saveScheduleRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := timetable.SaveInput{
		ScheduleID: req.ScheduleID,
		Name:       req.Name,
		Semester:   req.Semester,
		Year:       req.Year,
		Items:      make([]domain.Placement, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, domain.Placement{
			CourseID:  item.CourseID,
			Day:       item.Day,
			Time:      item.Time,
			ClassType: domain.ClassKind(item.ClassType),
			Duration:  item.Duration,
			VenueID:   item.VenueID,
			Lecturer:  strings.TrimSpace(item.Lecturer),
			Notes:     strings.TrimSpace(item.Notes),
		})
	}

	res, err := h.timetable.SaveSchedule(r.Context(), userIDFrom(r), in)
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	msg := "schedule updated"
	if res.Created {
		msg = "schedule created"
	}

	h.writeJSON(w, r, http.StatusOK, saveScheduleResponse{
		Response: Response{
			Success: true,
			Message: msg,
			Data:    map[string]any{"schedule_id": res.ScheduleID, "version": res.Version},
		},
		ScheduleID: res.ScheduleID,
		Version:    res.Version,
	})
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.timetable.ListSchedules(r.Context(), userIDFrom(r))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", schedules)
}

func (h *Handler) LoadSchedule(w http.ResponseWriter, r *http.Request) {
	view, err := h.timetable.LoadSchedule(r.Context(), userIDFrom(r), scheduleIDFrom(r), r.URL.Query().Get("token"))
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", view)
}

func (h *Handler) GetSharedSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid schedule id")
		return
	}

	view, err := h.timetable.LoadSchedule(r.Context(), userIDFrom(r), id, r.URL.Query().Get("token"))
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", view)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.timetable.DeleteSchedule(r.Context(), userIDFrom(r), scheduleIDFrom(r)); err != nil {
		h.timetableError(w, r, err)
		return
	}

	h.successResponse(w, r, "schedule deleted", nil)
}

func (h *Handler) ListScheduleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.timetable.ListVersions(r.Context(), userIDFrom(r), scheduleIDFrom(r))
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", versions)
}

func (h *Handler) GetScheduleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseInt(chi.URLParam(r, "version"), 10, 32)
	if err != nil || version <= 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid version")
		return
	}

	v, err := h.timetable.GetVersion(r.Context(), userIDFrom(r), scheduleIDFrom(r), int32(version))
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", v)
}

func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "format must be one of json, csv, ics, xlsx")
		return
	}

	// export is for the owner only, so no share token is passed on
	view, err := h.timetable.LoadSchedule(r.Context(), userIDFrom(r), scheduleIDFrom(r), "")
	if err != nil {
		h.timetableError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, format, view); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(view)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) ShareSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	userID := userIDFrom(r)
	schedule, err := h.timetable.OwnedSchedule(r.Context(), userID, scheduleIDFrom(r))
	if err != nil {
		h.timetableError(w, r, err)
		return
	}
	if schedule.ShareToken == nil {
		h.internalServerError(w, r, errors.New("schedule has no share token"))
		return
	}

	sender, err := h.repository.GetUserByID(r.Context(), userID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	link := fmt.Sprintf("%s/shared/%d?token=%s", strings.TrimRight(h.config.SiteURL, "/"), schedule.ID, *schedule.ShareToken)

	if err := h.mail.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailTypeShareSchedule,
		To:   req.Email,
		Data: domain.ShareScheduleMailData{
			SenderName:   sender.FullName(),
			ScheduleName: schedule.Name,
			Semester:     schedule.Semester,
			Year:         schedule.Year,
			Link:         link,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "share link sent", map[string]string{"link": link})
}
