package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/siteflow/pkg/cmd"
	"github.com/dukex/siteflow/pkg/eventbus"
	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/log"
	"github.com/dukex/siteflow/pkg/metrics"
	"github.com/dukex/siteflow/pkg/otelhelper"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/web"
	"github.com/dukex/siteflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPort         = 9091
	shutdownTimeout     = 10 * time.Second
	collaboratorTimeout = 30 * time.Second
)

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the workflow engine with its HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
			definitionsPathFlag(),
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka broker addresses",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "actions-url",
				Usage:    "Base URL of the platform functions executing actions",
				Required: true,
				Sources:  cli.EnvVars("ACTIONS_URL"),
			},
			&cli.StringFlag{
				Name:    "notifications-url",
				Usage:   "Base URL of the notification function (defaults to actions-url)",
				Sources: cli.EnvVars("NOTIFICATIONS_URL"),
			},
			&cli.StringFlag{
				Name:    "platform-token",
				Usage:   "Bearer token sent to the platform functions",
				Sources: cli.EnvVars("PLATFORM_TOKEN"),
			},
			&cli.DurationFlag{
				Name:    "approval-poll-interval",
				Usage:   "How often pending approvals are re-read from the store",
				Value:   time.Minute,
				Sources: cli.EnvVars("APPROVAL_POLL_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "history-page-size",
				Usage:   "Default number of instances returned by history queries",
				Value:   persistence.DefaultListLimit,
				Sources: cli.EnvVars("HISTORY_PAGE_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("siteflow")

			logger.InfoContext(ctx, "Initializing siteflow")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := serve(ctx, logger, command)
			if err != nil {
				logger.ErrorContext(ctx, "siteflow stopped", "error", err)
			}

			return err
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	tracer, shutdownTracer, err := newTracer(ctx, command.Bool("otel-enabled"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	registry, err := cmd.NewRegistry(logger, command.String("definitions-path"))
	if err != nil {
		return err
	}

	collaborators, err := cmd.NewCollaborators(
		logger,
		command.String("actions-url"),
		command.String("notifications-url"),
		command.String("platform-token"),
		collaboratorTimeout,
	)
	if err != nil {
		return err
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(logger, command.String("event-bus"), command.String("kafka-brokers"))
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	m := metrics.New()

	engine, err := workflow.NewEngine(logger, workflow.Config{
		Registry:             registry,
		Instances:            store.Instances(),
		Approvals:            store.Approvals(),
		Actions:              collaborators.Actions,
		Notifications:        collaborators.Notifications,
		Publisher:            eventBus,
		Tracer:               tracer,
		Metrics:              m,
		ApprovalPollInterval: command.Duration("approval-poll-interval"),
		HistoryPageSize:      int(command.Int("history-page-size")),
	})
	if err != nil {
		return err
	}

	defer engine.Close()

	triggers := workflow.NewTriggerManager(logger, engine)
	if err := triggers.ScheduleAll(); err != nil {
		return fmt.Errorf("failed to schedule workflows: %w", err)
	}

	if err := subscribe(ctx, eventBus, engine, triggers); err != nil {
		return err
	}

	resumed, err := engine.Recover(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover instances: %w", err)
	}

	logger.InfoContext(ctx, "Recovered workflow instances", "resumed", resumed)

	engine.Start()
	triggers.Start()

	defer triggers.Stop()

	handlers := web.NewAPIHandlers(logger, engine, store, eventBus, validator.New(validator.WithRequiredStructEnabled()))
	app := web.NewApp(handlers, m, false)

	return listen(ctx, logger, app, int(command.Int("port")))
}

func subscribe(ctx context.Context, eventBus eventbus.EventBus, engine *workflow.Engine, triggers *workflow.TriggerManager) error {
	if err := eventBus.Handle(events.WorkflowTriggeredEvent, triggers.HandleWorkflowTriggered); err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	if err := eventBus.Handle(events.ApprovalDecidedEvent, engine.HandleApprovalDecided); err != nil {
		return fmt.Errorf("failed to register approval handler: %w", err)
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	return nil
}

func listen(ctx context.Context, logger *slog.Logger, app *fiber.App, port int) error {
	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	logger.InfoContext(ctx, "API listening", "port", port)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := app.ShutdownWithContext(shutdownCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}

// nolint:ireturn // OpenTelemetry tracers are interfaces
func newTracer(ctx context.Context, enabled bool) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, cmd.ServiceName)
}
