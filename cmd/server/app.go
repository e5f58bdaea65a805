package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/cramdeck/internal/api/middleware"
	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/events"
	"github.com/phrazzld/cramdeck/internal/platform/filestore"
	"github.com/phrazzld/cramdeck/internal/platform/gemini"
	"github.com/phrazzld/cramdeck/internal/platform/mailer"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/platform/redis"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/phrazzld/cramdeck/internal/service/study"
	"github.com/phrazzld/cramdeck/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// sessionSweepInterval is how often idle study sessions are evicted.
const sessionSweepInterval = 5 * time.Minute

// application holds the shared dependencies of the server so they can be
// wired once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	rdb    *goredis.Client

	jwtService auth.JWTService
	revoker    middleware.RevocationChecker

	users   service.UserService
	catalog service.CatalogService
	study   *study.Service
	essays  service.EssayService
	mastery service.MasteryService

	taskRunner *task.TaskRunner
}

// newApplication builds stores, services and the background runner on top
// of an open database and Redis client.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	rdb *goredis.Client,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	caps := postgres.NewSchemaCapabilities(db, logger)
	subjectStore := postgres.NewPostgresSubjectStore(db, logger)
	subtopicStore := postgres.NewPostgresSubtopicStore(db, caps, logger)
	flashcardStore := postgres.NewPostgresFlashcardStore(db, caps, logger)
	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	masteryStore := postgres.NewPostgresMasteryStore(db, logger)
	essayStore := postgres.NewPostgresEssayStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	revoker := redis.NewTokenRevoker(rdb, logger)
	missed := redis.NewMissedCardTracker(rdb, logger)
	app.revoker = revoker

	files, err := filestore.New(cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	registry := task.NewRegistry()
	registry.Register(task.TaskTypeStudyMark, task.StudyMarkBuilder(masteryStore, missed, logger))

	grading := cfg.LLM.GradingEnabled()
	if grading {
		grader, err := gemini.NewEssayGrader(ctx, cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize essay grader: %w", err)
		}
		registry.Register(task.TaskTypeEssayGrading, task.EssayGradingBuilder(essayStore, grader, files, logger))
		logger.Info("essay grader initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Warn("essay grading disabled, no LLM credentials configured")
	}

	// The registry must be complete before Start, which rebuilds persisted
	// tasks from it.
	app.taskRunner, err = setupTaskRunner(cfg, taskStore, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(registry, app.taskRunner, logger))

	app.users = service.NewUserService(
		userStore,
		db,
		app.jwtService,
		auth.NewBcryptVerifier(),
		revoker,
		mailer.NewLogMailer(logger),
		cfg.Auth.AdminEmail,
		logger,
	)
	app.catalog = service.NewCatalogService(subjectStore, subtopicStore, flashcardStore, caps, db, logger)
	app.study = study.NewService(flashcardStore, subtopicStore, missed, emitter, study.Config{
		RandomDeckSize: cfg.Study.RandomDeckSize,
		IdleTimeout:    time.Duration(cfg.Study.SessionIdleMinutes) * time.Minute,
	}, logger)
	app.essays = service.NewEssayService(essayStore, files, emitter, grading, logger)
	app.mastery = service.NewMasteryService(subjectStore, flashcardStore, masteryStore, cfg.Study.MasteryThreshold, logger)

	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP until ctx is canceled, then releases every resource.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	go app.study.RunEviction(ctx, sessionSweepInterval)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner creates and starts the background task processor.
func setupTaskRunner(
	cfg *config.Config,
	taskStore task.TaskStore,
	registry *task.Registry,
	logger *slog.Logger,
) (*task.TaskRunner, error) {
	runnerCfg := task.DefaultTaskRunnerConfig()
	runnerCfg.QueueSize = cfg.Task.QueueSize
	runnerCfg.WorkerCount = cfg.Task.WorkerCount

	runner := task.NewTaskRunner(taskStore, registry, runnerCfg, logger)
	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return runner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
