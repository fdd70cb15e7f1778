package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	router "example.com/amadvs/internal/http"
	"example.com/amadvs/internal/http/api"
	"example.com/amadvs/internal/platform/config"
	"example.com/amadvs/internal/platform/jwt"
	"example.com/amadvs/internal/platform/metrics"
	"example.com/amadvs/internal/platform/revoke"
	"example.com/amadvs/internal/registration"
	"example.com/amadvs/internal/session"
)

const maxPhotoSize = 5 << 20

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			full, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				full.Port = ":" + port
			}
			full.LogLevel = cfg.LogLevel

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, full)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $APP_PORT or 8080)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	dir, closeDir, err := openDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDir()

	blacklist, closeBlacklist, err := openBlacklist(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlacklist()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	jwtv := jwt.NewHS256(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := session.NewManager(func() *session.Store {
		return session.NewStore(dir, dir,
			session.WithLatency(session.FixedLatency(cfg.AuthLatency)),
			session.WithLogger(logger),
			session.WithMetrics(m),
		)
	}, logger, m)
	defer sessions.Close()
	go sessions.Run(ctx, cfg.SessionIdleTTL, time.Minute)

	svc := api.NewService(sessions, dir, jwtv, blacklist, registration.NewMemPhotos(maxPhotoSize), logger)
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router.Build(svc, jwtv, reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("addr", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openBlacklist uses Redis when REDIS_ADDR is set so revocations survive
// restarts and are shared between instances.
func openBlacklist(ctx context.Context, cfg config.Config) (revoke.Blacklist, func(), error) {
	if cfg.RedisAddr == "" {
		mem := revoke.NewMem()
		go mem.Run(ctx, time.Minute)
		return mem, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return revoke.NewRedis(client), func() {
		if err := client.Close(); err != nil {
			logger.Error("redis close error", zap.Error(err))
		}
	}, nil
}
