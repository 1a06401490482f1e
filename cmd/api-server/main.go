package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/api"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/auth"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logger"
	"github.com/hackgods/vetclinic-scheduling/internal/memstore"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

var version = "dev"

type stores struct {
	appointments appointment.Repository
	patients     patient.Repository
	clients      client.Repository
	users        staff.Repository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("version", version).Msg("api-server starting up")
	if cfg.UsesDevSecret() {
		log.Warn().Msg("JWT_SECRET not set, signing tokens with the development secret")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pgPool *pgxpool.Pool
	var st stores

	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			var applied []string
			if applied, err = db.Migrate(pgCtx, pgPool); err == nil {
				log.Info().Strs("migrations", applied).Msg("schema up to date")
			}
		}
		cancelPg()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres setup error")
		}
		defer pgPool.Close()
		log.Info().Msg("connected to Postgres")

		st = stores{
			appointments: appointment.NewPgRepository(pgPool),
			patients:     patient.NewPgRepository(pgPool),
			clients:      client.NewPgRepository(pgPool),
			users:        staff.NewPgRepository(pgPool),
		}
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, using in-memory store; data is lost on exit")
		mem := memstore.New()
		st = stores{appointments: mem, patients: mem, clients: mem, users: mem}
	}

	var rdb *redis.Client
	var locker redisclient.Locker

	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		}()
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, booking locks are local to this process")
		locker = redisclient.NewLocalLocker()
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authSvc := auth.NewService(st.users, tokens)

	if cfg.BootstrapAdminEmail != "" {
		created, err := authSvc.Bootstrap(rootCtx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap administrator")
		}
		if created {
			log.Info().Str("email", cfg.BootstrapAdminEmail).Msg("bootstrap administrator created")
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointment.NewService(st.appointments, locker, log),
		Patients:     patient.NewService(st.patients),
		Clients:      client.NewService(st.clients),
		Auth:         authSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       log,
		Env:          cfg.Env,
		Version:      version,
		Location:     cfg.Location(),
		ListMaxLimit: cfg.ListMaxLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
