package backend

import (
	"context"
	"errors"
	"fmt"

	"teamfinance/internal/amqp"
	"teamfinance/internal/kafka"
	"teamfinance/internal/log"
	"teamfinance/internal/ports"
	"teamfinance/internal/storage"
	"teamfinance/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store}
	closers := []func() error{store.Close}

	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			if config.RequireEvents {
				_ = store.Close()
				return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
			}
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			break
		}
		f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		res.Publisher = client
		if config.Consume {
			res.Consumer = client
		}
		closers = append(closers, client.Close)

	case KafkaEvents:
		pub := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		res.Publisher = pub
		closers = append(closers, pub.Close)
		if config.Consume {
			consumer := kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID, f.logger)
			res.Consumer = consumer
			closers = append(closers, consumer.Close)
		}
		f.logger.Info("Initialized Kafka transport", "topic", config.KafkaTopic, "brokers", len(config.KafkaBrokers))
	}

	res.Cleanup = func() error {
		var errs []error
		// Close in reverse order so the store outlives the transports.
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ports.Store, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, f.logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresStore:
		repo, err := storage.NewPostgresRepository(ctx, config.PostgresDSN, f.logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return repo, nil

	case MemoryStore:
		f.logger.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Store)
	}
}
