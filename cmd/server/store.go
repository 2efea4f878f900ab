package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/ports"
	"github.com/99minutos/ai-messenger/internal/infrastructure/config"
	mongostore "github.com/99minutos/ai-messenger/internal/infrastructure/db/mongo"
	"github.com/99minutos/ai-messenger/internal/infrastructure/db/sqlite"
	"github.com/99minutos/ai-messenger/internal/infrastructure/http/handlers"
)

// store bundles the repositories of the configured driver.
type store struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	messages ports.MessageRepository
	activity ports.ActivityRepository
	health   handlers.Dependency
	close    func(context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb store ready")
		return &store{
			users:    mongostore.NewUserRepository(db),
			sessions: mongostore.NewSessionRepository(db),
			messages: mongostore.NewMessageRepository(db),
			activity: mongostore.NewActivityRepository(db),
			health: handlers.Dependency{
				Name: "mongodb",
				Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
			},
			close: client.Disconnect,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("sqlite store ready")
		return &store{
			users:    sqlite.NewUserRepository(db),
			sessions: sqlite.NewSessionRepository(db),
			messages: sqlite.NewMessageRepository(db),
			activity: sqlite.NewActivityRepository(db),
			health:   handlers.Dependency{Name: "sqlite", Ping: db.PingContext},
			close:    func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
