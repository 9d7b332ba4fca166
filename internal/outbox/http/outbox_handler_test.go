package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ledgersync/internal/errors"
	"github.com/allisson/ledgersync/internal/outbox/domain"
	"github.com/allisson/ledgersync/internal/outbox/http/dto"
	outboxUsecase "github.com/allisson/ledgersync/internal/outbox/usecase"
)

// mockQueueUseCase implements the subset of QueueUseCase used by the handler.
type mockQueueUseCase struct {
	outboxUsecase.QueueUseCase
	mock.Mock
}

func (m *mockQueueUseCase) Stats(ctx context.Context) (domain.OutboxStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OutboxStats), args.Error(1)
}

func (m *mockQueueUseCase) List(
	ctx context.Context,
	status domain.OutboxEntryStatus,
	offset, limit int,
) ([]*domain.OutboxEntry, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEntry), args.Error(1)
}

func (m *mockQueueUseCase) RequeueFailed(ctx context.Context, force bool) (int, error) {
	args := m.Called(ctx, force)
	return args.Int(0), args.Error(1)
}

func (m *mockQueueUseCase) ClearFailed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupTestHandler(t *testing.T) (*OutboxHandler, *mockQueueUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	queue := &mockQueueUseCase{}
	t.Cleanup(func() { queue.AssertExpectations(t) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOutboxHandler(queue, logger), queue
}

func createTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func TestOutboxHandler_StatsHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("Stats", mock.Anything).
			Return(domain.OutboxStats{Queued: 3, InProgress: 1, Done: 10, Error: 2}, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/outbox/stats")
		handler.StatsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, int64(3), response.Queued)
		assert.Equal(t, int64(2), response.Error)
		assert.Equal(t, int64(4), response.Pending)
	})

	t.Run("Error_Internal", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("Stats", mock.Anything).Return(domain.OutboxStats{}, errors.New("disk I/O error")).Once()

		c, w := createTestContext(http.MethodGet, "/v1/outbox/stats")
		handler.StatsHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOutboxHandler_ListHandler(t *testing.T) {
	t.Run("Success_DefaultsToFailedEntries", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		msg := "remote rejected document"
		entry := &domain.OutboxEntry{
			ID:               uuid.Must(uuid.NewV7()),
			Type:             domain.OperationTypeOrderUpsert,
			EntityKind:       domain.EntityKindOrder,
			EntityID:         "o-1",
			CloudPath:        "customers/c-1/orders/o-1.json",
			Status:           domain.OutboxEntryStatusError,
			Priority:         domain.PriorityOrder,
			AttemptCount:     3,
			LastErrorMessage: &msg,
			CreatedAt:        1_700_000_000_000,
			UpdatedAt:        1_700_000_060_000,
		}
		queue.On("List", mock.Anything, domain.OutboxEntryStatusError, 0, 50).
			Return([]*domain.OutboxEntry{entry}, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/outbox/entries")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListEntriesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, entry.ID.String(), response.Data[0].ID)
		assert.Equal(t, "ORDER_UPSERT", response.Data[0].Type)
		assert.Equal(t, "customers/c-1/orders/o-1.json", response.Data[0].CloudPath)
		require.NotNil(t, response.Data[0].LastErrorMessage)
		assert.Equal(t, msg, *response.Data[0].LastErrorMessage)
	})

	t.Run("Success_EmptyPage", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("List", mock.Anything, domain.OutboxEntryStatusQueued, 10, 5).
			Return([]*domain.OutboxEntry{}, nil).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/outbox/entries?status=queued&offset=10&limit=5")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/outbox/entries?limit=1000")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_UnknownStatus", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("List", mock.Anything, domain.OutboxEntryStatus("bogus"), 0, 50).
			Return(nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unknown outbox status")).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/outbox/entries?status=bogus")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestOutboxHandler_RequeueHandler(t *testing.T) {
	t.Run("Success_Default", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("RequeueFailed", mock.Anything, false).Return(2, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/outbox/requeue")
		handler.RequeueHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"requeued":2}`, w.Body.String())
	})

	t.Run("Success_Force", func(t *testing.T) {
		handler, queue := setupTestHandler(t)

		queue.On("RequeueFailed", mock.Anything, true).Return(7, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/outbox/requeue?force=true")
		handler.RequeueHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"requeued":7}`, w.Body.String())
	})

	t.Run("Error_InvalidForce", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/outbox/requeue?force=maybe")
		handler.RequeueHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOutboxHandler_ClearFailedHandler(t *testing.T) {
	handler, queue := setupTestHandler(t)

	queue.On("ClearFailed", mock.Anything).Return(int64(4), nil).Once()

	c, w := createTestContext(http.MethodDelete, "/v1/outbox/failed")
	handler.ClearFailedHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":4}`, w.Body.String())
}
