package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nust-timetable/timetable-manager/backend/internal/config"
	"github.com/nust-timetable/timetable-manager/backend/internal/coursecache"
	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/export"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
)

// Repository is the reference-data and account storage the handlers read directly.
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	GetCourses(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error)
	GetVenues(ctx context.Context) ([]*domain.Venue, error)
}

type MailPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Repository
	timetable   *timetable.Service
	catalog     *timeslot.Catalog
	exporter    *export.Exporter
	translator  ut.Translator
	mail        MailPublisher
	courseCache *coursecache.Cache

	Mux *chi.Mux
}

// NewHandler wires the HTTP layer. rdb may be nil, in which case course lists are not cached.
func NewHandler(
	cfg *config.Config,
	repo Repository,
	svc *timetable.Service,
	catalog *timeslot.Catalog,
	exporter *export.Exporter,
	mail MailPublisher,
	rdb *redis.Client,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		timetable:   svc,
		catalog:     catalog,
		exporter:    exporter,
		translator:  trans,
		mail:        mail,
		courseCache: coursecache.New(
			rdb,
			time.Duration(cfg.Redis.CourseCacheTTL)*time.Second,
			time.Duration(cfg.Redis.OperationExpiration)*time.Second,
		),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Handle("/metrics", promhttp.Handler())

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	h.Mux.Get("/time-slots", h.GetTimeSlots)

	// a share link works without an account; the owner is still recognised when signed in
	h.Mux.With(h.optionalAuth).Get("/shared/{id}", h.GetSharedSchedule)

	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/me", h.GetMe)
		r.Get("/courses", h.GetCourses)
		r.Get("/venues", h.GetVenues)

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.SaveSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.scheduleID)
				r.Get("/", h.LoadSchedule)
				r.Delete("/", h.DeleteSchedule)
				r.Get("/versions", h.ListScheduleVersions)
				r.Get("/versions/{version}", h.GetScheduleVersion)
				r.Get("/export", h.ExportSchedule)
				r.Post("/share", h.ShareSchedule)
			})
		})
	})
}
