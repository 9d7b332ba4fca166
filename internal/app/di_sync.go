package app

import (
	"context"
	"fmt"

	"github.com/allisson/ledgersync/internal/http"
	reconcileUsecase "github.com/allisson/ledgersync/internal/reconcile/usecase"
	"github.com/allisson/ledgersync/internal/remote"
	"github.com/allisson/ledgersync/internal/scheduler"
)

// BucketStore returns the remote object store opened from RemoteBucketURL. It also serves
// as the connectivity check.
func (c *Container) BucketStore() (*remote.BucketStore, error) {
	var err error
	c.bucketStoreInit.Do(func() {
		c.bucketStore, err = remote.OpenBucketStore(
			context.Background(),
			c.config.RemoteBucketURL,
			c.config.RemotePrefix,
		)
		if err != nil {
			c.initErrors["bucketStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bucketStore"]; exists {
		return nil, storedErr
	}
	return c.bucketStore, nil
}

// RemoteStore returns the remote store used by push and pull, rate limited when configured.
func (c *Container) RemoteStore() (remote.Store, error) {
	var err error
	c.remoteStoreInit.Do(func() {
		c.remoteStore, err = c.initRemoteStore()
		if err != nil {
			c.initErrors["remoteStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["remoteStore"]; exists {
		return nil, storedErr
	}
	return c.remoteStore, nil
}

// PullUseCase returns the pull reconciler.
func (c *Container) PullUseCase() (reconcileUsecase.PullUseCase, error) {
	var err error
	c.pullUseCaseInit.Do(func() {
		c.pullUseCase, err = c.initPullUseCase()
		if err != nil {
			c.initErrors["pullUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pullUseCase"]; exists {
		return nil, storedErr
	}
	return c.pullUseCase, nil
}

// Scheduler returns the sync scheduler.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	var err error
	c.schedulerInit.Do(func() {
		c.scheduler, err = c.initScheduler()
		if err != nil {
			c.initErrors["scheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduler"]; exists {
		return nil, storedErr
	}
	return c.scheduler, nil
}

// SyncHandler returns the HTTP handler for on-demand sync triggers.
func (c *Container) SyncHandler() (*http.SyncHandler, error) {
	var err error
	c.syncHandlerInit.Do(func() {
		var s *scheduler.Scheduler
		s, err = c.Scheduler()
		if err != nil {
			err = fmt.Errorf("failed to get scheduler for sync handler: %w", err)
			c.initErrors["syncHandler"] = err
			return
		}
		c.syncHandler = http.NewSyncHandler(s, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["syncHandler"]; exists {
		return nil, storedErr
	}
	return c.syncHandler, nil
}

// HTTPServer returns the admin HTTP server.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// initRemoteStore wraps the bucket store with a rate limiter when RemoteRateLimitPerSec is set.
func (c *Container) initRemoteStore() (remote.Store, error) {
	bucketStore, err := c.BucketStore()
	if err != nil {
		return nil, err
	}
	if c.config.RemoteRateLimitPerSec <= 0 {
		return bucketStore, nil
	}
	return remote.NewRateLimitedStore(
		bucketStore,
		c.config.RemoteRateLimitPerSec,
		c.config.RemoteRateLimitBurst,
	), nil
}

// initPullUseCase creates the pull reconciler with all its dependencies.
func (c *Container) initPullUseCase() (reconcileUsecase.PullUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for pull use case: %w", err)
	}

	remoteStore, err := c.RemoteStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get remote store for pull use case: %w", err)
	}

	customers, err := c.CustomerRepository()
	if err != nil {
		return nil, err
	}

	orders, err := c.OrderRepository()
	if err != nil {
		return nil, err
	}

	payments, err := c.PaymentRepository()
	if err != nil {
		return nil, err
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for pull use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for pull use case: %w", err)
	}

	useCase := reconcileUsecase.NewPullUseCase(
		txManager,
		remoteStore,
		customers,
		orders,
		payments,
		outboxRepo,
		c.Logger(),
	)
	return reconcileUsecase.NewPullUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initScheduler creates the sync scheduler over push, pull and outbox maintenance.
func (c *Container) initScheduler() (*scheduler.Scheduler, error) {
	push, err := c.PushUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get push use case for scheduler: %w", err)
	}

	pull, err := c.PullUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get pull use case for scheduler: %w", err)
	}

	queue, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for scheduler: %w", err)
	}

	bucketStore, err := c.BucketStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get remote store for scheduler: %w", err)
	}

	schedulerConfig := scheduler.Config{
		PushSchedule:   c.config.SyncPushSchedule,
		PullSchedule:   c.config.SyncPullSchedule,
		DoneRetention:  c.config.OutboxDoneRetention,
		BackoffInitial: c.config.SyncBackoffInitial,
		BackoffMax:     c.config.SyncBackoffMax,
	}

	return scheduler.New(schedulerConfig, push, pull, bucketStore, queue, c.Logger()), nil
}

// initHTTPServer creates the admin HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	outboxHandler, err := c.OutboxHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox handler for http server: %w", err)
	}

	syncHandler, err := c.SyncHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get sync handler for http server: %w", err)
	}

	bucketStore, err := c.BucketStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get remote store for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(
		c.config,
		outboxHandler,
		syncHandler,
		bucketStore,
		metricsProvider,
		c.config.MetricsNamespace,
	)

	return server, nil
}

// initMetricsServer creates the metrics HTTP server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
