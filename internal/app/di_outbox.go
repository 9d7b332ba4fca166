package app

import (
	"context"
	"fmt"

	"github.com/allisson/ledgersync/internal/database"
	"github.com/allisson/ledgersync/internal/metrics"
	outboxHTTP "github.com/allisson/ledgersync/internal/outbox/http"
	outboxRepository "github.com/allisson/ledgersync/internal/outbox/repository"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
)

// OutboxRepository returns the outbox entry repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEntryRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// QueueUseCase returns the outbox queue use case.
func (c *Container) QueueUseCase() (outboxUsecase.QueueUseCase, error) {
	var err error
	c.queueUseCaseInit.Do(func() {
		c.queueUseCase, err = c.initQueueUseCase()
		if err != nil {
			c.initErrors["queueUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queueUseCase"]; exists {
		return nil, storedErr
	}
	return c.queueUseCase, nil
}

// PushUseCase returns the push synchronizer.
func (c *Container) PushUseCase() (outboxUsecase.PushUseCase, error) {
	var err error
	c.pushUseCaseInit.Do(func() {
		c.pushUseCase, err = c.initPushUseCase()
		if err != nil {
			c.initErrors["pushUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pushUseCase"]; exists {
		return nil, storedErr
	}
	return c.pushUseCase, nil
}

// OutboxHandler returns the HTTP handler for outbox inspection and maintenance.
func (c *Container) OutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	var err error
	c.outboxHandlerInit.Do(func() {
		c.outboxHandler, err = c.initOutboxHandler()
		if err != nil {
			c.initErrors["outboxHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxHandler"]; exists {
		return nil, storedErr
	}
	return c.outboxHandler, nil
}

func (c *Container) outboxConfig() outboxUsecase.Config {
	return outboxUsecase.Config{
		BatchSize:     c.config.OutboxBatchSize,
		MaxAttempts:   c.config.OutboxMaxAttempts,
		RetryInterval: c.config.OutboxRetryInterval,
		StaleAfter:    c.config.OutboxStaleAfter,
	}
}

// initOutboxRepository selects the outbox repository matching the database driver.
func (c *Container) initOutboxRepository() (outboxUsecase.OutboxEntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverSQLite:
		return outboxRepository.NewSQLiteOutboxEntryRepository(db), nil
	case database.DriverMySQL:
		return outboxRepository.NewMySQLOutboxEntryRepository(db), nil
	case database.DriverPostgres:
		return outboxRepository.NewPostgreSQLOutboxEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initQueueUseCase creates the outbox queue with metrics and the queue depth gauge.
func (c *Container) initQueueUseCase() (outboxUsecase.QueueUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for queue use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for queue use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for queue use case: %w", err)
	}

	useCase := outboxUsecase.NewQueueUseCase(c.outboxConfig(), txManager, outboxRepo, c.Logger())

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for queue use case: %w", err)
	}
	if provider != nil {
		observe := func(ctx context.Context) (map[string]int64, error) {
			stats, err := useCase.Stats(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]int64{
				"queued":      stats.Queued,
				"in_progress": stats.InProgress,
				"done":        stats.Done,
				"error":       stats.Error,
			}, nil
		}
		if err := metrics.RegisterQueueDepthGauge(provider.MeterProvider(), c.config.MetricsNamespace, observe); err != nil {
			return nil, err
		}
	}

	return outboxUsecase.NewQueueUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initPushUseCase creates the push synchronizer over the remote store.
func (c *Container) initPushUseCase() (outboxUsecase.PushUseCase, error) {
	queue, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for push use case: %w", err)
	}

	remoteStore, err := c.RemoteStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get remote store for push use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for push use case: %w", err)
	}

	useCase := outboxUsecase.NewPushUseCase(c.outboxConfig(), queue, remoteStore, c.Logger())
	return outboxUsecase.NewPushUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initOutboxHandler creates the outbox HTTP handler.
func (c *Container) initOutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	queue, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for outbox handler: %w", err)
	}
	return outboxHTTP.NewOutboxHandler(queue, c.Logger()), nil
}
