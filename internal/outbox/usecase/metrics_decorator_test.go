package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ledgersync/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// mockPushUseCase is a mock implementation of PushUseCase for testing.
type mockPushUseCase struct {
	mock.Mock
}

func (m *mockPushUseCase) Push(ctx context.Context) (PushResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(PushResult), args.Error(1)
}

func (m *mockPushUseCase) ProcessBatch(ctx context.Context) (BatchResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(BatchResult), args.Error(1)
}

func expectMetrics(m *mockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", mock.Anything, "outbox", operation, status).Once()
	m.On("RecordDuration", mock.Anything, "outbox", operation, mock.AnythingOfType("time.Duration"), status).Once()
}

func TestPushUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		next := &mockPushUseCase{}
		m := &mockBusinessMetrics{}
		next.On("Push", ctx).Return(PushResult{Succeeded: 2}, nil).Once()
		expectMetrics(m, "outbox_push", "success")

		result, err := NewPushUseCaseWithMetrics(next, m).Push(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		next := &mockPushUseCase{}
		m := &mockBusinessMetrics{}
		next.On("ProcessBatch", ctx).Return(BatchResult{}, errors.New("boom")).Once()
		expectMetrics(m, "outbox_process_batch", "error")

		_, err := NewPushUseCaseWithMetrics(next, m).ProcessBatch(ctx)
		assert.Error(t, err)
		m.AssertExpectations(t)
	})

	t.Run("Cancelled_RecordsCancelledStatus", func(t *testing.T) {
		next := &mockPushUseCase{}
		m := &mockBusinessMetrics{}
		next.On("Push", ctx).Return(PushResult{}, context.Canceled).Once()
		expectMetrics(m, "outbox_push", "cancelled")

		_, err := NewPushUseCaseWithMetrics(next, m).Push(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		m.AssertExpectations(t)
	})
}

func TestQueueUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	queue, _, _ := newTestQueue(t, Config{})
	m := &mockBusinessMetrics{}
	decorated := NewQueueUseCaseWithMetrics(queue, m)

	expectMetrics(m, "outbox_enqueue", "success")
	_, err := decorated.Enqueue(ctx, customerUpsert("c-1", "Ann"))
	require.NoError(t, err)

	expectMetrics(m, "outbox_enqueue", "error")
	_, err = decorated.Enqueue(ctx, EnqueueInput{})
	require.Error(t, err)

	expectMetrics(m, "outbox_requeue", "success")
	_, err = decorated.RequeueFailed(ctx, false)
	require.NoError(t, err)

	stats, err := decorated.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Queued)

	m.AssertExpectations(t)
}
