package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marathononline/training-api/internal/app"
	"marathononline/training-api/internal/config"
	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/logging"
	"marathononline/training-api/internal/scheduler"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

func newApp(c *cli.Context) (*app.App, error) {
	cfg, ok := c.App.Metadata["config"].(config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.New(c.Context, cfg)
}

func serve(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("failed to disconnect mongodb")
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.Scheduler.Enabled {
		sched, err := scheduler.New(ctx, a.Config.Scheduler, a.Services.Scheduler)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:         a.Config.Server.Address,
		Handler:      a.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("address", server.Addr).Msg("serving")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func function(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Msg("running function")
	gl := ginadapter.New(a.Router())
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return gl.ProxyWithContext(ctx, req)
	})
	return nil
}

func runDaily(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	closed, err := a.Services.Scheduler.CompleteExpiredPlans(c.Context)
	if err != nil {
		return err
	}
	report, err := a.Services.Scheduler.RunDaily(c.Context)
	if err != nil {
		return err
	}
	log.Info().
		Int("expired", closed).
		Int("plans", report.Plans).
		Int("failed", report.Failed).
		Int("missed", report.Missed).
		Int("created", report.Created).
		Msg("daily update")
	return nil
}

func createAdmin(c *cli.Context) error {
	a, err := newApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.Services.Auth.Register(c.Context, c.String("name"), c.String("email"), c.String("password"), domain.RoleAdmin)
	if err != nil {
		return err
	}
	log.Info().Str("id", user.ID.Hex()).Str("email", user.Email).Msg("admin created")
	return nil
}

// @title Marathon Online Training API
// @version 1.0
// @description Training plans, daily sessions, running records and feedback for marathon runners.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cliApp := &cli.App{
		Name:     "training-api",
		HelpName: "training-api",
		Usage:    "Marathon training plans",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   ".",
				Usage:   "directory containing config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)
			c.App.Metadata["config"] = cfg
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the scheduler",
				Action: serve,
			},
			{
				Name:   "function",
				Usage:  "run the HTTP API as an AWS Lambda function",
				Action: function,
			},
			{
				Name:   "run-daily",
				Usage:  "close expired plans and run the daily training update once",
				Action: runDaily,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "full name"},
					&cli.StringFlag{Name: "email", Required: true, Usage: "login email"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "login password", EnvVars: []string{"ADMIN_PASSWORD"}},
				},
				Action: createAdmin,
			},
		},
		Action: serve,
	}
	if err := cliApp.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
