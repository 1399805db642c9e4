package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/api"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/config"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/members"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/settings"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/subscriptions"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/db"
	httpx "github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/http"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/logger"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/server.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
		return
	}

	memberRepo := members.NewRepo(pool)
	subRepo := subscriptions.NewRepo(pool)
	settingsRepo := settings.NewRepo(pool)
	logRepo := attendance.NewLogRepo(pool)
	quotaRepo := attendance.NewQuotaRepo(pool)

	svc := attendance.NewService(memberRepo, subRepo, settingsRepo, logRepo, quotaRepo, loc, logger.For(log, "checkin"))
	bundles := attendance.NewBundleBuilder(memberRepo, subRepo, quotaRepo, logRepo, settingsRepo)

	handler := api.NewHandler(svc, bundles, logRepo, cfg.Checkin.OrgID, cfg.Checkin.BranchID, log)
	router := api.NewRouter(handler)

	srv := httpx.New(cfg.HTTP.Addr, router, cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
