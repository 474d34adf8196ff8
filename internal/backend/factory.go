package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"unidiary/internal/amqp"
	"unidiary/internal/gateway"
	"unidiary/internal/gateway/memory"
	"unidiary/internal/gateway/postgres"
	"unidiary/internal/gateway/sqlite"
	"unidiary/internal/log"
)

// SeedFileName is the memory backend's seed document inside DataDirectory.
const SeedFileName = "seed.json"

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the configured gateway. When an AMQP URL is set the
// gateway publishes its mutations; a broker that cannot be reached is logged
// and the backend continues without the feed.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL == "" {
		return result, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change feed", log.FieldError, err)
		return result, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP change feed",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	closeStore := result.Cleanup
	result.Gateway = gateway.NewPublishing(result.Gateway, client, f.logger)
	result.Publishing = true
	result.Cleanup = func() error {
		return errors.Join(client.Close(), runCleanup(closeStore))
	}
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	seed := filepath.Join(dataDir, SeedFileName)
	store, err := memory.NewFromFile(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", seed)
	return &BackendResult{Gateway: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	db, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Gateway: db, Cleanup: db.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	db, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Postgres backend")
	return &BackendResult{Gateway: db, Cleanup: db.Close}, nil
}

func runCleanup(fn CleanupFunc) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Close releases the backend's resources.
func (r *BackendResult) Close() error {
	return runCleanup(r.Cleanup)
}
