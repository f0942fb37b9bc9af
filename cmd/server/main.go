package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/api"
	"github.com/taskgrid/notification-service/internal/config"
	"github.com/taskgrid/notification-service/internal/db"
	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/directory"
	"github.com/taskgrid/notification-service/internal/mailer"
	"github.com/taskgrid/notification-service/internal/metrics"
	"github.com/taskgrid/notification-service/internal/notifier"
	"github.com/taskgrid/notification-service/internal/poller"
	"github.com/taskgrid/notification-service/internal/producer"
	"github.com/taskgrid/notification-service/internal/pubsub"
	"github.com/taskgrid/notification-service/internal/ratelimiter"
	"github.com/taskgrid/notification-service/internal/registry"
	"github.com/taskgrid/notification-service/internal/repository"
	"github.com/taskgrid/notification-service/internal/resources"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- redis (delay queues + pub/sub) ----
	rdb, err := db.ConnectRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close() //nolint:errcheck

	// ---- core dependencies ----
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	queue := delayqueue.NewRedisQueue(rdb)
	repo := repository.NewPgRecordRepository(pool)
	dir := directory.NewHTTPDirectory(cfg.ProfileBaseURL, cfg.ProfileTimeout, logger)
	tasks := resources.NewHTTPLookup(cfg.TaskBaseURL, cfg.TaskTimeout, logger)
	limiter := ratelimiter.New(cfg.RateLimit)

	var mail mailer.Mailer
	if cfg.PostmarkServerToken != "" {
		mail, err = mailer.NewPostmarkMailer(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.EmailFrom)
		if err != nil {
			logger.Fatal("failed to create mailer", zap.Error(err))
		}
	} else {
		logger.Warn("postmark tokens unset, using dev mailer")
		mail = mailer.NewDevMailer(logger)
	}

	// ---- background goroutines ----
	// Context for everything long-running; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	var wg sync.WaitGroup

	connReg := registry.New(logger,
		registry.WithSweepInterval(cfg.SweepInterval),
		registry.WithConnGauge(func(total int) {
			m.LiveConnections.Set(float64(total))
		}))
	wg.Add(1)
	go func() {
		defer wg.Done()
		connReg.Run(workerCtx)
	}()

	onDelivered, onFailed := m.DeliveryHooks()
	dispatch := notifier.New(connReg, repo, mail, dir, tasks, limiter, logger,
		notifier.WithDeliveryHooks(onDelivered, onFailed))

	onCycle, onPoison := m.PollHooks()
	poll := poller.New(queue, dispatch, logger,
		poller.WithInterval(cfg.PollInterval),
		poller.WithPollHooks(onCycle, onPoison),
		poller.WithDepthGauge(func(queueName string, depth int64) {
			m.QueueDepth.WithLabelValues(queueName).Set(float64(depth))
		}))
	wg.Add(1)
	go func() {
		defer wg.Done()
		poll.Run(workerCtx)
	}()

	listener := pubsub.NewListener(rdb, dispatch, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.Run(workerCtx)
	}()

	prod := producer.New(queue, pubsub.NewPublisher(rdb, logger), logger)

	// ---- HTTP server ----
	router := api.NewRouter(repo, prod, queue, connReg, promReg, logger)
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout,
		// No WriteTimeout: websocket connections are long-lived and the
		// registry's liveness sweep reaps the dead ones.
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal pollers, the listener, and the sweep to stop. The registry
	//    closes every push connection on its way out.
	cancelWorkers()

	// 3. Wait for in-flight cycles to finish.
	wg.Wait()

	logger.Info("server stopped cleanly")
}
