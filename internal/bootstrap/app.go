package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/flow"
	"readiness-backend/internal/llm"
	"readiness-backend/internal/llm/gemini"
	"readiness-backend/internal/llm/openai"
	"readiness-backend/internal/notify"
	"readiness-backend/internal/progress"
	"readiness-backend/internal/services/health"
	"readiness-backend/internal/session"
	"readiness-backend/internal/shared/config"
	"readiness-backend/internal/shared/server"
	"readiness-backend/internal/shared/storage/db"
	"readiness-backend/internal/shared/storage/object"
	localstore "readiness-backend/internal/shared/storage/object/local"
	s3store "readiness-backend/internal/shared/storage/object/s3"
)

const notifyBuffer = 64

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.Store
	Progress progress.Repo
	LLM      llm.Client
	Gateway  *analysis.Gateway
	Session  *session.Store
	Flow     *flow.Service
	Handler  *flow.Handler
	Health   *health.Service
	Notifier notify.Notifier

	closers []func() error
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ProgressStore) == "" {
		cfg.ProgressStore = config.ProgressStoreFile
	}
	if strings.TrimSpace(cfg.LLMProvider) == "" {
		cfg.LLMProvider = "none"
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	if err := app.buildProgress(ctx); err != nil {
		app.Close()
		return nil, err
	}

	app.LLM = BuildLLM(ctx, cfg)
	app.Gateway = analysis.NewGateway(app.LLM, cfg.LLMRepairAttempts)
	app.Notifier = app.buildNotifier()

	var flowSvc *flow.Service
	app.Session = session.New(app.Progress, buildAnalyzer(cfg, app.Gateway), session.Options{
		Key:      cfg.ProgressKey,
		Duration: cfg.AssessmentDuration,
		OnProgress: func(sessionID, message string) {
			flowSvc.OnProgress(sessionID, message)
		},
	})
	flowSvc = flow.NewService(app.Session, app.Gateway, app.Store, app.Notifier)
	app.Flow = flowSvc
	app.Handler = flow.NewHandler(flowSvc)

	if app.Session.Load(ctx) {
		log.Printf("bootstrap: saved progress found for key %q", cfg.ProgressKey)
	}

	app.Health = health.NewService(cfg.ProgressStore, cfg.LLMProvider, cfg.AnalysisMode)
	if app.DB != nil {
		app.Health.AddCheck("database", app.DB)
	}
	if p, ok := app.Store.(health.Pinger); ok {
		app.Health.AddCheck("object_store", p)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     cfg,
		Health:     app.Health,
		Assessment: app.Handler,
	})
	return app, nil
}

// Close waits for background analyses and releases connections.
func (a *App) Close() error {
	if a.Session != nil {
		a.Session.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildStore picks where uploads and file-backed progress live. S3 is used
// only when it is also the progress store.
func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	if cfg.ProgressStore != config.ProgressStoreS3 {
		return localstore.New(cfg.LocalStoreDir), nil
	}
	store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) buildProgress(ctx context.Context) error {
	switch a.Config.ProgressStore {
	case config.ProgressStoreMemory:
		a.Progress = progress.NewMemoryRepo()
		return nil
	case config.ProgressStoreSQL:
		sqlDB, err := buildDB(ctx, a.Config)
		if err != nil {
			if isDevLike(a.Config.Env) {
				log.Printf("bootstrap: progress database unavailable; using file store: %v", err)
				a.Progress = progress.NewObjectRepo(a.Store)
				return nil
			}
			return err
		}
		a.DB = sqlDB
		a.closers = append(a.closers, sqlDB.Close)
		a.Progress = progress.NewSQLRepo(sqlDB)
		return nil
	default:
		a.Progress = progress.NewObjectRepo(a.Store)
		return nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.ProgressDBURL) == "" {
		return nil, fmt.Errorf("PROGRESS_DATABASE_URL is required")
	}
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.ProgressDBURL, opts)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB, db.DialectFor(cfg.ProgressDBURL)); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// BuildLLM returns the configured provider client wrapped with a retry, or a
// placeholder that always fails when no provider is usable.
func BuildLLM(ctx context.Context, cfg config.Config) llm.Client {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "gemini":
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	default:
		log.Printf("bootstrap: LLM provider disabled; analyses use fallback results")
		return llm.PlaceholderClient{}
	}
	if err != nil {
		log.Printf("bootstrap: %s client unavailable; analyses use fallback results: %v", cfg.LLMProvider, err)
		return llm.PlaceholderClient{}
	}
	return llm.NewRetrying(client)
}

func buildAnalyzer(cfg config.Config, gateway *analysis.Gateway) session.Analyzer {
	if cfg.AnalysisMode == config.AnalysisModePerCategory {
		return session.AnalyzerFunc(gateway.AnalyzeByCategory)
	}
	return gateway
}

func (a *App) buildNotifier() notify.Notifier {
	targets := notify.Multi{notify.LogNotifier{}}
	if strings.TrimSpace(a.Config.AMQPURL) != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(a.Config.AMQPURL, a.Config.AMQPExchange)
		if err != nil {
			log.Printf("bootstrap: amqp notifier unavailable: %v", err)
		} else {
			targets = append(targets, amqpNotifier)
			a.closers = append(a.closers, amqpNotifier.Close)
		}
	}
	async := notify.NewAsync(targets, notifyBuffer)
	a.closers = append(a.closers, func() error {
		async.Close()
		return nil
	})
	return async
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
