package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()

	server := httptest.NewServer(provider.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("ledgersync")
	require.NoError(t, err)

	assert.Equal(t, "ledgersync", provider.Namespace())
	assert.NotNil(t, provider.MeterProvider())
	assert.NotNil(t, provider.registry)
}

func TestProvider_HandlerExposesRuntimeCollectors(t *testing.T) {
	provider, err := NewProvider("ledgersync")
	require.NoError(t, err)

	body := scrape(t, provider)
	assert.Contains(t, body, "go_goroutines")
}

func TestProvider_HandlerExposesRecordedOperations(t *testing.T) {
	provider, err := NewProvider("ledgersync")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), provider.Namespace())
	require.NoError(t, err)
	bm.RecordOperation(context.Background(), "outbox", "outbox_push", "success")

	body := scrape(t, provider)
	assert.Contains(t, body, "ledgersync_operations_total")
	assert.Contains(t, body, `operation="outbox_push"`)
}

func TestProvider_Shutdown(t *testing.T) {
	t.Run("Success_ShutdownProvider", func(t *testing.T) {
		provider, err := NewProvider("ledgersync")
		require.NoError(t, err)

		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	t.Run("Success_ShutdownNilProvider", func(t *testing.T) {
		provider := &Provider{}

		assert.NoError(t, provider.Shutdown(context.Background()))
	})
}
