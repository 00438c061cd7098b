package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nust-timetable/timetable-manager/backend/internal/coursecache"
	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

func parseOptionalInt32(s string) (*int32, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}
	v := int32(n)
	return &v, nil
}

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := parseOptionalInt32(q.Get("year"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "year must be a number")
		return
	}
	semester, err := parseOptionalInt32(q.Get("semester"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "semester must be a number")
		return
	}

	filter := domain.CourseFilter{
		YearLevel: year,
		Semester:  semester,
		Search:    strings.TrimSpace(q.Get("search")),
	}

	key := coursecache.Key(filter)
	if courses, ok := h.courseCache.Get(r.Context(), key); ok {
		h.successResponse(w, r, "ok", courses)
		return
	}

	courses, err := h.repository.GetCourses(r.Context(), filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.courseCache.Set(r.Context(), key, courses)
	h.successResponse(w, r, "ok", courses)
}

func (h *Handler) GetVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.repository.GetVenues(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "ok", venues)
}

func (h *Handler) GetTimeSlots(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", h.catalog.Slots())
}
