// Package metrics holds the Prometheus collectors of the timetable service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScheduleSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_schedule_saves_total",
			Help: "Schedule save attempts by outcome",
		},
		[]string{"result"},
	)
	PlacementRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_placement_rejections_total",
			Help: "Rejected placements by reason",
		},
		[]string{"reason"},
	)
	ScheduleLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_schedule_loads_total",
			Help: "Schedule loads by access path",
		},
		[]string{"access"},
	)
	SaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timetable_schedule_save_duration_seconds",
			Help:    "Time spent persisting an accepted save",
			Buckets: prometheus.DefBuckets,
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetable_http_requests_total",
			Help: "HTTP requests by method and status",
		},
		[]string{"method", "status"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ScheduleSaves, PlacementRejections, ScheduleLoads, SaveDuration, HTTPRequests)
	})
}

func ObserveSave(start time.Time) {
	SaveDuration.Observe(time.Since(start).Seconds())
}
