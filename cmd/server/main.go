package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/omflip/flip-engine/internal/fairness"
	"github.com/omflip/flip-engine/internal/metrics"
	"github.com/omflip/flip-engine/internal/model"
	"github.com/omflip/flip-engine/internal/store"
	"github.com/omflip/flip-engine/internal/wager"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbpool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, dbpool.Close)
		pg := store.NewPostgresStore(dbpool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Platform config ---
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- WebSocket hub ---
	hub := wager.NewHub()
	go hub.Run()

	// --- Wager service ---
	source := fairness.NewHashSource(fairness.Argon2Hasher{})
	svc := wager.NewService(st, source, hub)
	if err := svc.Init(context.Background(), cfg); err != nil {
		slog.Error("platform init failed", "err", err)
		os.Exit(1)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"flip-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time flip events.
		r.Get("/ws", hub.HandleWS)

		// Wagering.
		r.Post("/flip", svc.HandleFlip)
		r.Post("/claim", svc.HandleClaim)

		// Pool management.
		r.Get("/pool", svc.HandlePool)
		r.Get("/pool/available", svc.HandleAvailable)
		r.Post("/pool/deposit", svc.HandleDeposit)
		r.Post("/pool/withdraw", svc.HandleWithdraw)

		// Administration.
		r.Post("/admin/accept", svc.HandleAcceptAdmin)
		r.Post("/admin/config", svc.HandleUpdateConfig)
		r.Post("/admin/pause", svc.HandlePause)
		r.Post("/admin/unpause", svc.HandleUnpause)

		// Queries.
		r.Get("/config", svc.HandleConfig)
		r.Get("/users", svc.HandleUsers)
		r.Get("/users/{address}", svc.HandleUser)
		r.Get("/users/{address}/flips", svc.HandleUserFlips)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("flip-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down flip-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("flip-engine stopped")
}

// loadConfig builds the platform config from the environment. FLIP_ADMIN
// is required; everything else has defaults.
func loadConfig() (*model.Config, error) {
	admin := os.Getenv("FLIP_ADMIN")
	if admin == "" {
		return nil, fmt.Errorf("FLIP_ADMIN is required")
	}
	if err := model.ValidateAddress(admin); err != nil {
		return nil, fmt.Errorf("FLIP_ADMIN: %w", err)
	}

	worker := os.Getenv("FLIP_WORKER")
	if worker != "" {
		if err := model.ValidateAddress(worker); err != nil {
			return nil, fmt.Errorf("FLIP_WORKER: %w", err)
		}
	}

	denom := os.Getenv("FLIP_DENOM")
	if denom == "" {
		denom = wager.DefaultDenom
	}
	if err := model.ValidateDenom(denom); err != nil {
		return nil, fmt.Errorf("FLIP_DENOM: %w", err)
	}

	betMin, err := envInt("FLIP_BET_MIN", wager.DefaultBetMin)
	if err != nil {
		return nil, err
	}
	betMax, err := envInt("FLIP_BET_MAX", wager.DefaultBetMax)
	if err != nil {
		return nil, err
	}
	if betMin > betMax {
		return nil, fmt.Errorf("FLIP_BET_MIN exceeds FLIP_BET_MAX")
	}

	fee := wager.DefaultPlatformFee
	if raw := os.Getenv("FLIP_FEE"); raw != "" {
		fee = raw
	}
	feeDec, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("FLIP_FEE: %w", err)
	}
	if feeDec.IsNegative() || feeDec.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("FLIP_FEE must be within [0, 1]")
	}

	return &model.Config{
		Admin:  admin,
		Worker: worker,
		Bet: model.Range{
			Min: decimal.NewFromInt(betMin),
			Max: decimal.NewFromInt(betMax),
		},
		Denom:       denom,
		PlatformFee: feeDec,
	}, nil
}

func envInt(name string, fallback int64) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
