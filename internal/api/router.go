package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/api/handler"
	apimw "github.com/taskgrid/notification-service/internal/api/middleware"
	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/producer"
	"github.com/taskgrid/notification-service/internal/registry"
	"github.com/taskgrid/notification-service/internal/repository"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	repo repository.RecordRepository,
	prod *producer.Producer,
	queue delayqueue.Queue,
	connReg *registry.Registry,
	promReg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(repo, logger)
	ph := handler.NewPreferencesHandler(repo, logger)
	pub := handler.NewPublishHandler(prod, logger)
	wh := handler.NewWSHandler(connReg, logger)
	mh := handler.NewMetricsHandler(queue, connReg)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ws", wh.Serve)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Notifications — note: /read must be registered before /{userID}
		// so chi does not treat the literal string "read" as a user ID.
		r.Patch("/notifications/read", nh.MarkRead)
		r.Patch("/notifications/{id}/toggle-read", nh.ToggleRead)
		r.Get("/notifications/{userID}", nh.List)
		r.Delete("/notifications/{userID}", nh.DeleteAll)
		r.Delete("/notifications/{userID}/{id}", nh.DeleteOne)

		// Preferences
		r.Get("/preferences/{userID}/delivery", ph.GetDelivery)
		r.Put("/preferences/{userID}/delivery", ph.UpdateDelivery)
		r.Get("/preferences/{userID}/frequency", ph.GetFrequency)
		r.Put("/preferences/{userID}/frequency", ph.UpdateFrequency)

		// Producer surface
		r.Post("/publish/deadline-reminder", pub.DeadlineReminder)
		r.Post("/publish/update", pub.Update)
		r.Post("/publish/added", pub.Added)
		r.Post("/publish/immediate", pub.Immediate)
		r.Post("/schedule", pub.Schedule)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
