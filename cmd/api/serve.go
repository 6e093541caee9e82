package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/calllog"
	"voice-orchestrator/internal/calls"
	"voice-orchestrator/internal/config"
	"voice-orchestrator/internal/livekit"
	"voice-orchestrator/internal/routing"
	"voice-orchestrator/internal/telephony"
	"voice-orchestrator/pkg/logger"
	"voice-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 20 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewManager(cfg.LiveKit)
	if err != nil {
		return fmt.Errorf("auth init failed: %w", err)
	}
	// Signing never fails per call with a valid key; prove that before serving.
	if _, err := tokens.IssueParticipant(time.Now(), auth.ParticipantGrant{Identity: "startup-check", Room: "startup-check"}); err != nil {
		return fmt.Errorf("credential self-test failed: %w", err)
	}

	platform, err := livekit.NewClient(livekit.Config{URL: cfg.LiveKit.URL, Timeout: cfg.LiveKit.RequestTimeout}, tokens)
	if err != nil {
		return fmt.Errorf("livekit client init failed: %w", err)
	}

	blocklist, err := routing.LoadBlocklist(cfg.Blocklist.Numbers, cfg.Blocklist.File)
	if err != nil {
		return err
	}
	log.Info("blocklist loaded", "entries", blocklist.Len())

	repo, closeRepo, err := openCallLog(rootCtx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()
	sink := calllog.NewSink(repo, log, cfg.CallLog.QueueSize)

	prov, err := calls.NewProvisioner(platform, tokens, calls.ProvisionerConfig{
		AgentName:       cfg.LiveKit.AgentName,
		EmptyTimeout:    cfg.Room.EmptyTimeout,
		RollbackTimeout: cfg.Webhook.RollbackTimeout,
	})
	if err != nil {
		return err
	}
	svc, err := calls.NewService(routing.NewScreen(blocklist), prov, sink)
	if err != nil {
		return err
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg.Webhook.Path, telephony.CallWebhookHandler{
		Calls:       svc,
		Health:      platform,
		Secret:      cfg.Webhook.Secret,
		CallTimeout: cfg.Webhook.CallTimeout,
		LiveKitURL:  cfg.LiveKit.URL,
		AgentName:   cfg.LiveKit.AgentName,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(cfg.Webhook),
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return sink.Run(gctx)
	})

	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "webhook_path", cfg.Webhook.Path, "call_log", cfg.CallLog.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
		}
		// In-flight calls are done; flush what they recorded.
		if err := sink.Close(shutdownCtx); err != nil {
			log.Error("call log flush incomplete", "err", err)
		}
		return nil
	})

	return g.Wait()
}

// writeTimeout leaves room for a full call plus its rollback.
func writeTimeout(w config.WebhookConfig) time.Duration {
	d := w.CallTimeout + w.RollbackTimeout + 5*time.Second
	if d < 30*time.Second {
		return 30 * time.Second
	}
	return d
}

// openCallLog selects the configured call-log backend. The returned func
// releases its connections.
func openCallLog(ctx context.Context, cfg config.Config, log *slog.Logger) (calllog.Repository, func(), error) {
	switch cfg.CallLog.Backend {
	case config.CallLogBackendPostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres init failed: %w", err)
		}
		repo := calllog.NewPostgresRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, func() { _ = db.Close() }, nil

	case config.CallLogBackendRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			return nil, nil, fmt.Errorf("redis init failed: %w", err)
		}
		return calllog.NewRedisRepo(rdb, cfg.CallLog.Stream, 0), func() { _ = rdb.Close() }, nil

	default:
		return calllog.NewLogRepo(log), func() {}, nil
	}
}
