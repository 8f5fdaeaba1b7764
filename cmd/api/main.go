package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatdesk_backend/internal/adapters"
	"chatdesk_backend/internal/agent"
	"chatdesk_backend/internal/calendar"
	"chatdesk_backend/internal/conversation"
	convhandler "chatdesk_backend/internal/conversation/handler"
	convsvc "chatdesk_backend/internal/conversation/service"
	"chatdesk_backend/internal/email"
	"chatdesk_backend/internal/events"
	apphttp "chatdesk_backend/internal/http"
	"chatdesk_backend/internal/http/router"
	"chatdesk_backend/internal/jobs"
	"chatdesk_backend/internal/leads"
	"chatdesk_backend/internal/notification"
	notifsvc "chatdesk_backend/internal/notification/service"
	"chatdesk_backend/internal/organization"
	"chatdesk_backend/internal/realtime"
	"chatdesk_backend/internal/scheduling"
	schedsvc "chatdesk_backend/internal/scheduling/service"
	"chatdesk_backend/internal/scoring"
	"chatdesk_backend/internal/storage"
	"chatdesk_backend/internal/whatsapp"
	"chatdesk_backend/migrations"
	"chatdesk_backend/platform/ai/moonshot"
	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/db"
	"chatdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Redis backs both realtime dashboard pub/sub and the reminder queue.
	// Both degrade gracefully when REDIS_URL is not configured.
	rtPublisher := initRealtime(cfg, log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender := email.NewSender(cfg, log)

	// Attachment storage for the widget (MinIO)
	var attachments *storage.AttachmentStore
	if cfg.IsMinIOEnabled() {
		attachments, err = storage.NewAttachmentStore(cfg, log)
		if err != nil {
			log.Error("failed to initialize attachment storage", "error", err)
			panic("failed to initialize attachment storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure attachments bucket", 5, 2*time.Second, func() error {
			return attachments.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure attachments bucket exists", "error", err)
			panic("failed to ensure attachments bucket exists: " + err.Error())
		}
		log.Info("attachment storage initialized", "bucket", cfg.GetMinioBucketAttachments())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; widget attachments disabled")
	}

	whatsappClient := whatsapp.NewClient(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	organizationModule := organization.NewModule(pool, log)
	scoringModule := scoring.NewModule(pool, log)
	leadsModule := leads.NewModule(pool, scoringModule.Engine, eventBus, log)

	orgDirectory := adapters.NewOrgDirectory(organizationModule.Service)

	calendarGateway := calendar.NewClient(calendar.NewCredentialStore(pool), cfg, log)
	schedulingModule := scheduling.NewModule(pool, calendarGateway, orgDirectory, reminderScheduler, eventBus, log)

	// Notification module subscribes to domain events and also exposes
	// settings endpoints.
	var rtChannel notifsvc.RealtimePublisher
	if rtPublisher != nil {
		rtChannel = rtPublisher
	}
	notificationModule := notification.NewModule(pool, sender, rtChannel, rtPublisher, orgDirectory, eventBus, log)

	var escalationEmitter convsvc.EscalationEmitter
	if rtPublisher != nil {
		escalationEmitter = adapters.NewRealtimeEscalationEmitter(rtPublisher, log)
	}

	// The bot responder is wired after the conversation module exists: the
	// escalation tool calls back into the conversation service.
	var attachmentStore convhandler.AttachmentStore
	if attachments != nil {
		attachmentStore = attachments
	}
	conversationModule := conversation.NewModule(conversation.Deps{
		Pool:        pool,
		Config:      cfg,
		Orgs:        organizationModule.Service,
		Responder:   nil,
		Emitter:     escalationEmitter,
		Sender:      whatsappClient,
		Resolver:    organizationModule.Service,
		Attachments: attachmentStore,
		Bus:         eventBus,
		Logger:      log,
	})

	if cfg.GetModelAPIKey() != "" {
		llm := moonshot.NewModel(moonshot.Config{
			APIKey:  cfg.GetModelAPIKey(),
			BaseURL: cfg.GetModelBaseURL(),
			Model:   cfg.GetModelName(),
		})
		orchestrator := agent.NewOrchestrator(llm, cfg.GetAgentMaxSteps(), log)
		responder := agent.NewResponder(orchestrator, agent.ToolDeps{
			Leads:     leadsModule.Service,
			Escalator: adapters.NewBotEscalator(conversationModule.Service),
			Booker:    schedulingModule.Service,
			Timezones: orgDirectory,
		}, orgDirectory)
		conversationModule.Service.SetResponder(adapters.NewAgentResponder(responder))
		log.Info("agent responder initialized", "model", cfg.GetModelName(), "maxSteps", cfg.GetAgentMaxSteps())
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; conversations fall back to the static reply")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			organizationModule,
			conversationModule,
			scoringModule,
			leadsModule,
			schedulingModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRealtime(cfg config.RedisConfig, log *logger.Logger) *realtime.Publisher {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; realtime dashboard updates disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse REDIS_URL", "error", err)
		return nil
	}

	return realtime.NewPublisher(redis.NewClient(opts), log)
}

func initReminderScheduler(cfg config.RedisConfig, log *logger.Logger) (schedsvc.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; appointment reminders disabled")
		return nil, nil
	}

	reminderClient, err := jobs.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
