// Package app wires configuration, storage and services into a runnable
// application shared by the HTTP server, the CLI jobs and the Lambda handler.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marathononline/training-api/internal/ai"
	"marathononline/training-api/internal/api"
	"marathononline/training-api/internal/config"
	"marathononline/training-api/internal/fraud"
	"marathononline/training-api/internal/notify"
	repomongo "marathononline/training-api/internal/repository/mongo"
	"marathononline/training-api/internal/service"
	"marathononline/training-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

const indexTimeout = time.Minute

// App holds the wired dependency graph.
type App struct {
	Config   config.Config
	Services api.Services
	Calendar service.Calendar
	client   *mongo.Client
}

// New connects to MongoDB, ensures indexes and builds every service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret must be set")
	}

	client, err := repomongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	db := client.Database(cfg.Database.Name)
	log.Info().Str("database", cfg.Database.Name).Bool("transactions", cfg.Database.Transactions).Msg("database connection established")

	idxCtx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := repomongo.EnsureIndexes(idxCtx, db); err != nil {
		_ = repomongo.DisconnectDB(client)
		return nil, err
	}

	store, err := storage.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		// exports are optional; everything else keeps working
		log.Warn().Err(err).Msg("object storage unavailable, plan export disabled")
		store = nil
	}

	cal := service.NewCalendar(cfg.Scheduler.Location(), time.Now)
	tx := repomongo.NewTransactor(client, cfg.Database.Transactions)
	userRepo := repomongo.NewMongoUserRepository(db)
	planRepo := repomongo.NewMongoTrainingPlanRepository(db)
	dayRepo := repomongo.NewMongoTrainingDayRepository(db)
	recordRepo := repomongo.NewMongoRecordRepository(db)

	notifier := notify.NewLogNotifier()
	generator := service.NewPlanGenerator(ai.NewClient(cfg.AI), cal.Location())
	approvals := service.NewRecordApprovalService(fraud.NewScriptClassifier(cfg.Fraud))
	days := service.NewTrainingDayService(planRepo, dayRepo, recordRepo, cal)

	return &App{
		Config:   cfg,
		Calendar: cal,
		client:   client,
		Services: api.Services{
			Auth:      service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration),
			Plans:     service.NewTrainingPlanService(tx, userRepo, planRepo, dayRepo, recordRepo, generator, store, notifier, cal),
			Days:      days,
			Feedback:  service.NewFeedbackService(days, dayRepo, cal),
			Records:   service.NewRecordService(tx, recordRepo, approvals, days, cal),
			Scheduler: service.NewDailyScheduler(tx, planRepo, dayRepo, generator, notifier, cal),
		},
	}, nil
}

// Router returns the HTTP handler for the API.
func (a *App) Router() *gin.Engine {
	return api.NewRouter(a.Config.JWT.Secret, a.Services)
}

// Close disconnects from MongoDB.
func (a *App) Close() error {
	log.Info().Msg("disconnecting mongodb")
	return repomongo.DisconnectDB(a.client)
}
