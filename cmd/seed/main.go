package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nust-timetable/timetable-manager/backend/internal/config"
	"github.com/nust-timetable/timetable-manager/backend/internal/coursecache"
	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/repository"
	"github.com/nust-timetable/timetable-manager/backend/internal/seed"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
	"github.com/nust-timetable/timetable-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var emailDomain string
	var olderThan time.Duration

	flag.IntVar(&op, "op", 0, "operation to run (1: reference data, 2: random students with demo timetables, 3: purge deleted timetables)")
	flag.IntVar(&n, "n", 5, "number of records to insert")
	flag.StringVar(&emailDomain, "email-domain", "students.nust.na", "email domain for generated students")
	flag.DurationVar(&olderThan, "older-than", 30*24*time.Hour, "purge deleted timetables last touched before this age")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		return
	}

	if err := repository.RunMigrations(dbpool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	bg := context.Background()

	switch op {
	case 0:
		slog.Error("no operation given")
	case 1:
		if err := seed.SeedReferenceData(bg, repo); err != nil {
			slog.Error("failed to seed reference data", slog.String("error", err.Error()))
			return
		}
		invalidateCourseCache(bg, cfg)
	case 2:
		if n <= 0 {
			slog.Error("n must be positive")
			return
		}
		seedStudents(bg, cfg, repo, n, emailDomain)
	case 3:
		purge(bg, repo, time.Now().Add(-olderThan))
	default:
		slog.Error("unknown operation", slog.Int("op", op))
	}
}

// seedStudents creates n random students and saves one demo timetable for each.
func seedStudents(ctx context.Context, cfg *config.Config, repo *repository.Repository, n int, emailDomain string) {
	courses, err := repo.GetCourses(ctx, domain.CourseFilter{})
	if err != nil {
		slog.Error("failed to load courses", slog.String("error", err.Error()))
		return
	}
	if len(courses) == 0 {
		slog.Error("no courses found, run -op 1 first")
		return
	}
	venues, err := repo.GetVenues(ctx)
	if err != nil {
		slog.Error("failed to load venues", slog.String("error", err.Error()))
		return
	}

	catalog := timeslot.Default()
	svc := timetable.NewService(repo, catalog)

	users, schedules := 0, 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, emailDomain)
		if err != nil {
			slog.Error("failed to generate user", slog.String("error", err.Error()))
			continue
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			slog.Error("failed to insert user", slog.String("error", err.Error()), slog.String("email", user.Email))
			continue
		}
		users++

		if _, err := seed.SeedDemoSchedule(ctx, svc, catalog, user.ID, courses, venues); err != nil {
			slog.Error("failed to save demo timetable", slog.String("error", err.Error()), slog.Int64("user_id", user.ID))
			continue
		}
		schedules++
	}

	slog.Info("students seeded", slog.Int("users", users), slog.Int("schedules", schedules))
}

// invalidateCourseCache drops cached course lists so the API serves the reloaded catalog
// straight away. The API still works if this fails; entries then expire after their TTL.
func invalidateCourseCache(ctx context.Context, cfg *config.Config) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	cache := coursecache.New(rdb, 0, time.Duration(cfg.Redis.OperationExpiration)*time.Second)
	n, err := cache.Invalidate(ctx)
	if err != nil {
		slog.Warn("failed to invalidate course cache", slog.String("error", err.Error()))
		return
	}
	slog.Info("course cache invalidated", slog.Int("keys", n))
}

func purge(ctx context.Context, repo *repository.Repository, before time.Time) {
	ids, err := repo.GetInactiveScheduleIDs(ctx, before)
	if err != nil {
		slog.Error("failed to list deleted timetables", slog.String("error", err.Error()))
		return
	}

	cnt := 0
	for _, id := range ids {
		if err := repo.HardDeleteSchedule(ctx, id); err != nil {
			slog.Error("failed to purge timetable", slog.String("error", err.Error()), slog.Int64("schedule_id", id))
			continue
		}
		cnt++
	}

	slog.Info("deleted timetables purged", slog.Int("count", cnt), slog.Time("before", before))
}
