package app

import (
	"fmt"

	ledgerRepository "github.com/allisson/ledgersync/internal/ledger/repository"
	ledgerUsecase "github.com/allisson/ledgersync/internal/ledger/usecase"
)

// CustomerRepository returns the customer repository.
func (c *Container) CustomerRepository() (*ledgerRepository.CustomerRepository, error) {
	var err error
	c.customerRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for customer repository: %w", dbErr)
			c.initErrors["customerRepo"] = err
			return
		}
		c.customerRepo = ledgerRepository.NewCustomerRepository(db, c.config.DBDriver)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["customerRepo"]; exists {
		return nil, storedErr
	}
	return c.customerRepo, nil
}

// OrderRepository returns the order repository.
func (c *Container) OrderRepository() (*ledgerRepository.OrderRepository, error) {
	var err error
	c.orderRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for order repository: %w", dbErr)
			c.initErrors["orderRepo"] = err
			return
		}
		c.orderRepo = ledgerRepository.NewOrderRepository(db, c.config.DBDriver)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// PaymentRepository returns the payment repository.
func (c *Container) PaymentRepository() (*ledgerRepository.PaymentRepository, error) {
	var err error
	c.paymentRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for payment repository: %w", dbErr)
			c.initErrors["paymentRepo"] = err
			return
		}
		c.paymentRepo = ledgerRepository.NewPaymentRepository(db, c.config.DBDriver)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentRepo, nil
}

// LedgerUseCase returns the ledger use case that writes entities together with their outbox entries.
func (c *Container) LedgerUseCase() (ledgerUsecase.LedgerUseCase, error) {
	var err error
	c.ledgerUseCaseInit.Do(func() {
		c.ledgerUseCase, err = c.initLedgerUseCase()
		if err != nil {
			c.initErrors["ledgerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ledgerUseCase"]; exists {
		return nil, storedErr
	}
	return c.ledgerUseCase, nil
}

// initLedgerUseCase creates the ledger use case with all its dependencies.
func (c *Container) initLedgerUseCase() (ledgerUsecase.LedgerUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for ledger use case: %w", err)
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

	queue, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for ledger use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for ledger use case: %w", err)
	}

	useCase := ledgerUsecase.NewLedgerUseCase(txManager, customers, orders, payments, queue, c.Logger())
	return ledgerUsecase.NewLedgerUseCaseWithMetrics(useCase, businessMetrics), nil
}
