package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/config"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	httpx "github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/http"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/logger"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/offline"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/replica"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/syncer"
)

type scanRequest struct {
	ScannedValue string            `json:"scanned_value"`
	Method       attendance.Method `json:"method"`
}

func main() {
	cfg, err := config.Load("config/agent.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	store, err := replica.Open(filepath.Join(cfg.Agent.DataDir, "replica.db"))
	if err != nil {
		log.Error("replica open failed", "err", err)
		return
	}
	defer func() { _ = store.Close() }()

	deviceID, err := store.DeviceID()
	if err != nil {
		log.Error("device id failed", "err", err)
		return
	}
	log.Info("replica ready", "device_id", deviceID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := syncer.NewClient(cfg.Agent.ServerURL, cfg.Checkin.OrgID, cfg.Checkin.BranchID)
	engine := offline.NewEngine(store, logger.For(log, "offline"))

	bus := syncer.NewInProcessBus()
	elector := syncer.NewElector(uuid.NewString(), bus)
	defer elector.Close()

	manager := syncer.NewManager(store, client, client, elector, logger.For(log, "syncer"))

	// First refresh and drain happen at startup; cron keeps them periodic.
	manager.BundleSync(ctx)
	if err := manager.Drain(ctx); err != nil {
		log.Error("initial drain failed", "err", err)
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Agent.BundleSyncEach, func() { manager.BundleSync(ctx) }); err != nil {
		log.Error("bad bundle sync schedule", "err", err)
		return
	}
	if _, err := sched.AddFunc(cfg.Agent.DrainEach, func() {
		if err := manager.Drain(ctx); err != nil {
			log.Error("drain failed", "err", err)
		}
	}); err != nil {
		log.Error("bad drain schedule", "err", err)
		return
	}
	sched.Start()
	defer sched.Stop()

	router := newRouter(ctx, client, engine, manager, store, log)
	srv := httpx.New(cfg.Agent.Addr, router, cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("agent started", "addr", cfg.Agent.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

func newRouter(ctx context.Context, client *syncer.Client, engine *offline.Engine, manager *syncer.Manager, store *replica.Store, log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Online first; the offline engine only answers when the server is
	// unreachable. A business denial from the server is trusted and never
	// re-evaluated locally.
	r.Post("/scan", func(w http.ResponseWriter, req *http.Request) {
		var in scanRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.ScannedValue == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		dec, err := client.CheckIn(req.Context(), in.ScannedValue, in.Method, "")
		if err == nil {
			respondJSON(w, map[string]any{"source": "online", "decision": dec})
			return
		}
		if !errors.Is(err, syncer.ErrUnreachable) {
			log.Error("scan failed", "err", err)
			http.Error(w, "scan failed", http.StatusBadGateway)
			return
		}

		offDec, err := engine.CheckIn(in.ScannedValue, in.Method)
		if err != nil {
			log.Error("offline scan failed", "err", err)
			http.Error(w, "scan failed", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"source": "offline", "decision": offDec})
	})

	r.Get("/sync/status", func(w http.ResponseWriter, _ *http.Request) {
		counts, err := manager.Counts()
		if err != nil {
			http.Error(w, "status failed", http.StatusInternalServerError)
			return
		}
		out := map[string]any{"queue": counts}
		if last, ok, _ := store.LastBundleSync(); ok {
			out["last_bundle_sync"] = last.Unix()
		}
		respondJSON(w, out)
	})

	r.Post("/sync/now", func(w http.ResponseWriter, _ *http.Request) {
		go func() {
			manager.BundleSync(ctx)
			if err := manager.Drain(ctx); err != nil {
				log.Error("manual drain failed", "err", err)
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	})

	r.Post("/sync/requeue-failed", func(w http.ResponseWriter, _ *http.Request) {
		n, err := manager.RequeueFailed()
		if err != nil {
			http.Error(w, "requeue failed", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"requeued": n})
	})

	return r
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
