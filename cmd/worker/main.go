// Package main - точка входа фонового процесса (Worker) учебного хаба.
//
// Worker отвечает за жизненный цикл обучения и сертификацию:
// - Периодическая переоценка прогресса курсов (NotYet → Ongoing → Completed)
// - Ежедневная развёртка истечения сертификатов и предупреждения владельцев
// - Обработка доменных событий (утверждение курса, запись оценки)
//
// Команды и запросы (создание расписаний, запись оценок, выпуск
// сертификатов) доступны через встроенный REST API; Worker держит
// всю проводку зависимостей в одном месте.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vta-hub/vta-training-hub/config"
	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/application/eventhandler"
	"github.com/vta-hub/vta-training-hub/internal/application/query"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/messaging"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/persistence/postgres"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/persistence/redis"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/scheduler"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/scheduler/jobs"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/service"
	httpapi "github.com/vta-hub/vta-training-hub/internal/interface/http"
	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env удобен в разработке; в проде переменные приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting training hub worker",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// Кеш и блокировки не критичны: без Redis работаем напрямую.
			log.Warn("failed to connect to Redis, cache and job locks disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Info("Redis connection established")
		}
	}

	var historyCache *redis.HistoryCache
	if redisCache != nil {
		historyCache = redis.NewHistoryCache(redisCache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	courseRepo := postgres.NewCourseRepository(dbConn)
	scheduleRepo := postgres.NewScheduleRepository(dbConn)
	gradeRepo := postgres.NewGradeRepository(dbConn)
	certRepo := postgres.NewCertificateRepository(dbConn)
	requestRepo := postgres.NewRequestRepository(dbConn)
	directory := postgres.NewUserDirectory(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing services...")
	renderer := service.NewPlaceholderRenderer()
	documents := service.NewGuardedDocumentStore(service.NewHTTPDocumentStore(service.HTTPDocumentStoreConfig{
		BaseURL: cfg.Archive.BaseURL,
		Token:   cfg.Archive.Token,
		Timeout: cfg.Archive.RequestTimeout,
	}))
	sink := service.NewLogNotificationSink(log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. КОМАНДЫ И ЗАПРОСЫ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing command and query handlers...")
	clock := command.SystemClock{}

	advanceCourse := command.NewAdvanceCourseHandler(dbConn, courseRepo, eventBus, clock)
	createSchedule := command.NewCreateScheduleHandler(dbConn, courseRepo, scheduleRepo, directory, eventBus, clock)
	enrollTrainee := command.NewEnrollTraineeHandler(courseRepo, clock)
	recordGrade := command.NewRecordGradeHandler(dbConn, gradeRepo, courseRepo, eventBus, clock)
	issueCerts := command.NewIssueCertificatesHandler(
		dbConn, courseRepo, gradeRepo, certRepo, directory,
		renderer, documents, sink, eventBus, clock,
		command.IssueCertificatesConfig{
			Concurrency:            cfg.Certification.BatchConcurrency,
			ContainerTag:           cfg.Archive.CertificateContainer,
			StrictRecurrentRenewal: cfg.Features.IsEnabled(config.FeatureStrictRecurrentRenewal, nil),
		},
	)
	issueDecision := command.NewIssueDecisionHandler(dbConn, courseRepo, certRepo, eventBus, clock)
	submitRequest := command.NewSubmitRequestHandler(requestRepo, clock)
	reviewRequest := command.NewReviewRequestHandler(dbConn, requestRepo, courseRepo, eventBus, clock)

	renewalHistory := query.NewRenewalHistoryHandler(certRepo, courseRepo, historyCacheOrNil(historyCache), redis.TTLHistoryCache)
	expiringCerts := query.NewExpiringCertificatesHandler(certRepo)
	pendingRequests := query.NewPendingRequestsHandler(requestRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("subscribing event handlers...")
	onCourseApproved := eventhandler.NewOnCourseApprovedHandler(advanceCourse, log)
	if err := eventBus.Subscribe(shared.EventCourseApproved, onCourseApproved.Handle); err != nil {
		return fmt.Errorf("failed to subscribe course approved handler: %w", err)
	}

	onGradeRecorded := eventhandler.NewOnGradeRecordedHandler(advanceCourse, courseRepo, certRepo, historyCacheOrNil(historyCache), log)
	if err := eventBus.Subscribe(shared.EventGradeRecorded, onGradeRecorded.Handle); err != nil {
		return fmt.Errorf("failed to subscribe grade recorded handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP API
	// ─────────────────────────────────────────────────────────────────────────
	// Команды и запросы дергаются REST-интерфейсом; фоновые задачи и
	// обработчики событий живут в этом же процессе.
	var apiServer *httpapi.Server
	var apiErrCh <-chan error
	if cfg.HTTP.Enabled {
		apiCfg := httpapi.DefaultConfig()
		apiCfg.Host = cfg.HTTP.Host
		apiCfg.Port = cfg.HTTP.Port
		apiCfg.ReadTimeout = cfg.HTTP.ReadTimeout
		apiCfg.WriteTimeout = cfg.HTTP.WriteTimeout
		apiCfg.IdleTimeout = cfg.HTTP.IdleTimeout
		apiCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

		apiServer = httpapi.NewServer(apiCfg, httpapi.Dependencies{
			CreateSchedule:       createSchedule,
			EnrollTrainee:        enrollTrainee,
			RecordGrade:          recordGrade,
			IssueCertificates:    issueCerts,
			IssueDecision:        issueDecision,
			SubmitRequest:        submitRequest,
			ReviewRequest:        reviewRequest,
			RenewalHistory:       renewalHistory,
			ExpiringCertificates: expiringCerts,
			PendingRequests:      pendingRequests,
			Logger:               log,
		})
		apiErrCh = apiServer.StartAsync()
		log.Info("HTTP API started", "address", apiCfg.Address())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ПЛАНИРОВЩИК ФОНОВЫХ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:        log,
			Timezone:      cfg.App.Location,
			EnableMetrics: true,
		})

		if cfg.Features.IsEnabled(config.FeatureProgressSweep, nil) {
			sweepCfg := jobs.DefaultCourseProgressSweepConfig()
			sweepCfg.Timeout = cfg.Scheduler.JobTimeout
			sweep := jobs.NewCourseProgressSweepJob(advanceCourse, redisCache, log, sweepCfg)
			if err := sched.Register(sweep, scheduler.NewIntervalSchedule(cfg.Scheduler.ProgressSweepInterval)); err != nil {
				return fmt.Errorf("failed to register progress sweep: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureExpirySweep, nil) {
			expiryCfg := jobs.DefaultCertificateExpiryConfig()
			expiryCfg.Timeout = cfg.Scheduler.JobTimeout
			expiryCfg.WarnWithinDays = cfg.Certification.RenewalWindowDays
			expiryCfg.NotifyHolders = cfg.Features.IsEnabled(config.FeatureNotifyExpiry, nil)
			expiry := jobs.NewCertificateExpiryJob(certRepo, sink, eventBus, redisCache, log, expiryCfg)
			if err := sched.Register(expiry, scheduler.NewDailySchedule(cfg.Scheduler.ExpiryHour, cfg.Scheduler.ExpiryMinute)); err != nil {
				return fmt.Errorf("failed to register certificate expiry: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("training hub worker is running", "timezone", cfg.App.Timezone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-apiErrCh:
		if err != nil {
			return fmt.Errorf("http api failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if apiServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http api shutdown failed", "error", err)
		}
		cancelShutdown()
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Warn("scheduler stop failed", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// historyCacheOrNil избегает интерфейса с nil-указателем внутри, когда
// Redis отключён.
func historyCacheOrNil(c *redis.HistoryCache) certificate.HistoryCache {
	if c == nil {
		return nil
	}
	return c
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
