// Package timetable saves, deletes, loads and lists student schedules. Every operation takes
// the acting user's id explicitly.
package timetable

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/metrics"
	"github.com/nust-timetable/timetable-manager/backend/internal/placement"
	"github.com/nust-timetable/timetable-manager/backend/internal/repository"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/utils"
)

// Store is the slice of the repository the service needs. *repository.Repository satisfies it.
type Store interface {
	GetScheduleByID(ctx context.Context, id int64) (*domain.Schedule, error)
	GetActiveScheduleByUserAndName(ctx context.Context, userID int64, name string) (*domain.Schedule, error)
	GetActiveSchedulesByUserID(ctx context.Context, userID int64) ([]*domain.Schedule, error)
	GetScheduleItemDetails(ctx context.Context, scheduleID int64) ([]domain.ScheduleItemDetail, error)
	GetScheduleVersions(ctx context.Context, scheduleID int64) ([]*domain.ScheduleVersion, error)
	GetScheduleVersion(ctx context.Context, scheduleID int64, version int32) (*domain.ScheduleVersion, error)
	SoftDeleteSchedule(ctx context.Context, id int64) error
	InTx(ctx context.Context, fn func(ctx context.Context, w repository.ScheduleWriter) error) error
}

type Service struct {
	store     Store
	catalog   *timeslot.Catalog
	validator *placement.Validator
	now       func() time.Time
}

func NewService(store Store, catalog *timeslot.Catalog) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		validator: placement.NewValidator(catalog),
		now:       time.Now,
	}
}

type SaveInput struct {
	ScheduleID *int64
	Name       string
	Semester   int32
	Year       int32
	Items      []domain.Placement
}

type SaveResult struct {
	ScheduleID int64
	Version    int32
	Created    bool
}

func (in *SaveInput) check() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	if in.Semester != 1 && in.Semester != 2 {
		return fmt.Errorf("%w: semester must be 1 or 2", ErrInvalidPayload)
	}
	if in.Year < 2000 || in.Year > 2100 {
		return fmt.Errorf("%w: year is out of range", ErrInvalidPayload)
	}
	for i, p := range in.Items {
		if err := utils.ValidatePlacementShape(i, p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

// SaveSchedule replaces the full item set of the caller's schedule and appends a version.
// The schedule is picked by explicit id when given, otherwise by (user, name); a new one
// is created when neither matches. Nothing is written unless every placement is accepted.
func (s *Service) SaveSchedule(ctx context.Context, userID int64, in SaveInput) (*SaveResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.check(); err != nil {
		metrics.ScheduleSaves.WithLabelValues("invalid").Inc()
		return nil, err
	}

	res := s.validator.Validate(in.Items)
	if err := res.Err(); err != nil {
		metrics.ScheduleSaves.WithLabelValues("rejected").Inc()
		for _, r := range res.Rejections {
			metrics.PlacementRejections.WithLabelValues(string(r.Reason)).Inc()
		}
		return nil, err
	}

	existing, err := s.findTarget(ctx, userID, in)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			metrics.ScheduleSaves.WithLabelValues("forbidden").Inc()
		}
		return nil, err
	}

	accepted := make([]domain.Placement, 0, len(res.Accepted))
	for _, a := range res.Accepted {
		accepted = append(accepted, a.Placement)
	}
	snapshot, err := json.Marshal(domain.ScheduleSnapshot{
		Name:      in.Name,
		Semester:  in.Semester,
		Year:      in.Year,
		Items:     accepted,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	out := &SaveResult{Created: existing == nil}
	start := s.now()

	err = s.store.InTx(ctx, func(ctx context.Context, w repository.ScheduleWriter) error {
		schedule := existing
		if schedule == nil {
			token := utils.GenerateShareToken()
			schedule = &domain.Schedule{
				UserID:     userID,
				Name:       in.Name,
				Semester:   in.Semester,
				Year:       in.Year,
				ShareToken: &token,
			}
			if err := w.CreateSchedule(ctx, schedule); err != nil {
				return fmt.Errorf("create schedule: %w", err)
			}
		}

		if err := w.DeleteScheduleItems(ctx, schedule.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}

		for _, row := range res.Rows(schedule.ID) {
			if err := w.InsertScheduleItem(ctx, &row); err != nil {
				return fmt.Errorf("insert item %s: %w", row.Slot, err)
			}
		}

		if err := w.TouchSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("touch schedule: %w", err)
		}

		version, err := w.AppendScheduleVersion(ctx, schedule.ID, snapshot)
		if err != nil {
			return fmt.Errorf("append version: %w", err)
		}

		out.ScheduleID = schedule.ID
		out.Version = version
		return nil
	})
	if err != nil {
		metrics.ScheduleSaves.WithLabelValues("failed").Inc()
		slog.Error("schedule save rolled back", "user_id", userID, "name", in.Name, "error", err)
		return nil, ErrSaveFailed
	}

	metrics.ObserveSave(start)
	if out.Created {
		metrics.ScheduleSaves.WithLabelValues("created").Inc()
	} else {
		metrics.ScheduleSaves.WithLabelValues("updated").Inc()
	}

	return out, nil
}

// findTarget returns the schedule a save should update, or nil when a new one is needed.
func (s *Service) findTarget(ctx context.Context, userID int64, in SaveInput) (*domain.Schedule, error) {
	if in.ScheduleID != nil {
		schedule, err := s.activeSchedule(ctx, *in.ScheduleID)
		if err != nil {
			return nil, err
		}
		if schedule.UserID != userID {
			return nil, ErrForbidden
		}
		return schedule, nil
	}

	schedule, err := s.store.GetActiveScheduleByUserAndName(ctx, userID, in.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return schedule, nil
}

func (s *Service) activeSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	schedule, err := s.store.GetScheduleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if !schedule.IsActive {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

// OwnedSchedule returns an active schedule that belongs to userID.
func (s *Service) OwnedSchedule(ctx context.Context, userID, id int64) (*domain.Schedule, error) {
	schedule, err := s.activeSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.UserID != userID {
		return nil, ErrForbidden
	}
	return schedule, nil
}

// DeleteSchedule soft-deletes a schedule owned by userID. Items and versions are kept.
func (s *Service) DeleteSchedule(ctx context.Context, userID, id int64) error {
	if _, err := s.OwnedSchedule(ctx, userID, id); err != nil {
		return err
	}

	if err := s.store.SoftDeleteSchedule(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return err
	}

	return nil
}

func (s *Service) ListSchedules(ctx context.Context, userID int64) ([]*domain.Schedule, error) {
	return s.store.GetActiveSchedulesByUserID(ctx, userID)
}

// LoadSchedule builds the view of a schedule. The owner always has access. Anyone else,
// signed in or not, must present the schedule's share token: a schedule merely having a
// token is not enough, and a missing or wrong token yields ErrForbidden. Only the owner
// gets the token back in the view. Inactive schedules are ErrScheduleNotFound for everyone.
func (s *Service) LoadSchedule(ctx context.Context, userID, id int64, token string) (*domain.ScheduleView, error) {
	schedule, err := s.activeSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := userID != 0 && schedule.UserID == userID
	if !isOwner && !tokenMatches(schedule.ShareToken, token) {
		return nil, ErrForbidden
	}

	details, err := s.store.GetScheduleItemDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &domain.ScheduleView{
		ID:        schedule.ID,
		Name:      schedule.Name,
		Semester:  schedule.Semester,
		Year:      schedule.Year,
		IsOwner:   isOwner,
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
		Items:     s.viewItems(details),
	}
	if isOwner && schedule.ShareToken != nil {
		view.ShareToken = *schedule.ShareToken
	}

	if isOwner {
		metrics.ScheduleLoads.WithLabelValues("owner").Inc()
	} else {
		metrics.ScheduleLoads.WithLabelValues("shared").Inc()
	}

	return view, nil
}

func tokenMatches(stored *string, presented string) bool {
	if stored == nil || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}

func (s *Service) viewItems(details []domain.ScheduleItemDetail) []domain.ScheduleViewItem {
	items := make([]domain.ScheduleViewItem, 0, len(details))

	for _, d := range details {
		if d.Item.Kind == domain.ClassPracticalCont {
			continue
		}

		lecturer := d.Item.LecturerName
		if lecturer == "" {
			lecturer = d.Course.LecturerFor(d.Item.Kind)
		}

		item := domain.ScheduleViewItem{
			ItemID:     d.Item.ID,
			CourseID:   d.Item.CourseID,
			CourseCode: d.Course.Code,
			CourseName: d.Course.Name,
			ColorCode:  d.Course.Color,
			Day:        d.Item.Slot.Day,
			DayName:    d.Item.Slot.Day.String(),
			Time:       d.Item.Slot.Start,
			EndTime:    d.Slot.End,
			ClassType:  d.Item.Kind,
			Duration:   d.Item.Duration,
			VenueID:    d.Item.VenueID,
			Lecturer:   lecturer,
			Notes:      d.Item.Notes,
			SlotKind:   d.Slot.Kind,
		}
		if d.Venue != nil {
			item.VenueCode = d.Venue.Code
			item.VenueName = d.Venue.Name
		}
		if d.Item.Duration == 2 {
			if next, ok := s.catalog.Next(d.Item.Slot.Day, d.Item.Slot.Start); ok {
				item.ContinuationTime = next.Start
				item.EndTime = next.End
			}
		}

		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b domain.ScheduleViewItem) int {
		if a.Day != b.Day {
			return int(a.Day) - int(b.Day)
		}
		return strings.Compare(a.Time, b.Time)
	})

	return items
}

// VersionView is a decoded ledger entry.
type VersionView struct {
	ScheduleID int64                   `json:"schedule_id"`
	Version    int32                   `json:"version"`
	CreatedAt  time.Time               `json:"created_at"`
	Snapshot   domain.ScheduleSnapshot `json:"snapshot"`
}

func (s *Service) ListVersions(ctx context.Context, userID, id int64) ([]*domain.ScheduleVersion, error) {
	if _, err := s.OwnedSchedule(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.GetScheduleVersions(ctx, id)
}

func (s *Service) GetVersion(ctx context.Context, userID, id int64, version int32) (*VersionView, error) {
	if _, err := s.OwnedSchedule(ctx, userID, id); err != nil {
		return nil, err
	}

	v, err := s.store.GetScheduleVersion(ctx, id, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}

	view := &VersionView{
		ScheduleID: v.ScheduleID,
		Version:    v.VersionNumber,
		CreatedAt:  v.CreatedAt,
	}
	if err := json.Unmarshal(v.Snapshot, &view.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %d/%d: %w", id, version, err)
	}

	return view, nil
}
