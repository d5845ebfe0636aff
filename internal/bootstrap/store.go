package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"neighborfit/server/config"
	"neighborfit/server/internal/database"
	"neighborfit/server/internal/database/mongostore"
	"neighborfit/server/internal/neighborhood"
)

// OpenStore connects the backend selected by the configuration and prepares
// its schema or indexes. The returned function releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (neighborhood.Store, func() error, error) {
	switch strings.ToLower(cfg.Database.Driver) {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return openSQLite(cfg, logger)
	}
}

func openSQLite(cfg *config.Config, logger *logrus.Logger) (neighborhood.Store, func() error, error) {
	dbPath := cfg.Database.Path
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	logger.Infof("Using database at: %s", dbPath)

	db, err := database.NewDatabase(dbPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	repo, err := database.NewNeighborhoodStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (neighborhood.Store, func() error, error) {
	client, err := mongostore.Connect(ctx, cfg.Database.MongoURI, cfg.Database.ConnectTimeout)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("database", cfg.Database.MongoDatabase).Info("Connected to MongoDB")

	s := mongostore.NewNeighborhoodStore(client.Database(cfg.Database.MongoDatabase), cfg.Database.MongoCollection, logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}

	closeFn := func() error {
		return client.Disconnect(context.Background())
	}
	return s, closeFn, nil
}
