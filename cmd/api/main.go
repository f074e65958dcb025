package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claims-dialer/internal/auth"
	"claims-dialer/internal/config"
	"claims-dialer/internal/httpapi"
	"claims-dialer/internal/interactions"
	"claims-dialer/internal/leads"
	"claims-dialer/internal/numbers"
	"claims-dialer/internal/telephony"
	"claims-dialer/internal/users"
	"claims-dialer/pkg/logger"
	"claims-dialer/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Dialer core
	recorder := interactions.NewRecorder(interactions.NewPostgresRepo(db))
	statusStore := telephony.NewRedisStatusStore(rdb, cfg.Twilio.StatusTTL)
	waiter := telephony.NewJoinWaiter()
	slots := telephony.NewRedisCallSlots(rdb, cfg.Twilio.MaxCallsPerUser)
	leadRepo := leads.NewPostgresRepo(db)

	orchestrator := &telephony.Orchestrator{
		Twilio:       cfg.Twilio,
		Rest:         telephony.NewRestClient(cfg.Twilio.AccountSID, cfg.Twilio.APIKeySID, cfg.Twilio.APISecret),
		Store:        statusStore,
		Numbers:      numbers.NewPostgresRepo(db),
		Interactions: recorder,
		Waiter:       waiter,
		Slots:        slots,
	}

	loginLimit := httpapi.NewRateLimiter(1, 5)
	defer loginLimit.Close()

	deps := appDeps{
		dialer: telephony.Handlers{
			Tokens:       telephony.NewTokenIssuer(cfg.Twilio),
			Orchestrator: orchestrator,
			Store:        statusStore,
		},
		webhooks: &telephony.WebhookHandler{
			Store:        statusStore,
			Leads:        leadRepo,
			Interactions: recorder,
			Waiter:       waiter,
			Slots:        slots,
		},
		accounts: httpapi.Handlers{
			Users: users.NewPostgresRepo(db),
			Auth:  authManager,
		},
		authMW:     auth.RequireAccessToken(authManager),
		loginLimit: loginLimit,
		health: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
