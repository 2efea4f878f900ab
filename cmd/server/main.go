package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/api"
	"github.com/99minutos/ai-messenger/internal/api/metrics"
	"github.com/99minutos/ai-messenger/internal/core/ports"
	"github.com/99minutos/ai-messenger/internal/core/service"
	"github.com/99minutos/ai-messenger/internal/infrastructure/config"
	redisstore "github.com/99minutos/ai-messenger/internal/infrastructure/db/redis"
	"github.com/99minutos/ai-messenger/internal/infrastructure/http/handlers"
	"github.com/99minutos/ai-messenger/internal/infrastructure/provider"
	"github.com/99minutos/ai-messenger/internal/infrastructure/queue"
	"github.com/99minutos/ai-messenger/internal/infrastructure/security"
	"github.com/99minutos/ai-messenger/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       AI Messenger API
// @version                     1.0
// @description                 Session-authenticated relay that forwards user messages to an AI provider and stores the replies.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{})
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		File:   cfg.LogFile,
	})
	defer logger.Reset()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()
	health := []handlers.Dependency{st.health}

	var (
		limiter     ports.LoginLimiter
		relayOption []service.RelayOption
	)
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PingTimeout:  cfg.Redis.PingTimeout,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = redisstore.NewLoginLimiter(rdb, cfg.Login.MaxAttempts, cfg.Login.Window)
		relayOption = append(relayOption, service.WithClaimer(redisstore.NewClaimStore(rdb, cfg.Relay.ClaimTTL)))
		health = append(health, redisDependency(rdb))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis enabled: login throttling and shared relay claims")
	}
	relayOption = append(relayOption, service.WithObserver(metrics.RelayObserver{}))

	hasher, err := security.NewPasswordHasher(security.Argon2Params{
		Memory:      cfg.Password.Memory,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  security.DefaultArgon2Params().SaltLength,
		KeyLength:   security.DefaultArgon2Params().KeyLength,
	})
	if err != nil {
		return err
	}

	ai, err := newProvider(cfg)
	if err != nil {
		return err
	}

	creds, err := service.NewCredentialStore(st.users, hasher)
	if err != nil {
		return err
	}
	sessions := service.NewSessionManager(st.sessions, security.Tokens{}, cfg.Session.Timeout, service.WithSessionLogger(log))
	ledger := service.NewLedger(st.messages)
	activity := service.NewActivityLogger(st.activity, cfg.Relay.ActivityTimeout, log)
	go drainActivityErrors(ctx, activity, log)

	relay := service.NewRelay(ledger, ai, activity, cfg.Relay.ProviderTimeout, log, relayOption...)
	dispatcher := queue.NewDispatcher(cfg.Relay.Workers, relay, log)
	dispatcher.Start(ctx)

	// Messages left pending by a previous run are relayed again.
	if n, err := relay.Sweep(ctx, dispatcher); err != nil {
		log.Error().Err(err).Msg("startup sweep failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("requeued pending messages")
	}
	go dispatcher.RunSweeps(ctx, cfg.Relay.SweepInterval, relay)

	e := api.NewRouter(api.Deps{
		Auth:       service.NewAuthService(creds, sessions, limiter, activity, log),
		Messages:   service.NewMessageService(ledger, creds, dispatcher, activity, log),
		Health:     health,
		Log:        log,
		Registerer: prometheus.DefaultRegisterer,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Str("provider", cfg.Provider.Name).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newProvider(cfg *config.Config) (ports.Provider, error) {
	if cfg.Provider.Name == config.ProviderLoopback {
		return provider.Loopback{}, nil
	}
	m, err := provider.NewMistral(&http.Client{}, provider.MistralConfig{
		APIKey:       cfg.Provider.APIKey,
		Model:        cfg.Provider.Model,
		URL:          cfg.Provider.URL,
		SystemPrompt: cfg.Provider.SystemPrompt,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func redisDependency(rdb *goredis.Client) handlers.Dependency {
	return handlers.Dependency{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}

func drainActivityErrors(ctx context.Context, a *service.ActivityLogger, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-a.Errors():
			log.Warn().Err(err).Msg("activity sink error")
		}
	}
}
