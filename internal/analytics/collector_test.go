package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

func TestCollectorInitializeThenLogEvent(t *testing.T) {
	var paths []string
	var lastPayload eventPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/collect" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lastPayload))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewCollector(srv.URL + "/collect")
	require.NoError(t, c.Initialize(context.Background(), Options{ClientID: "install-1"}))
	require.NoError(t, c.LogEvent(context.Background(), "purchase", map[string]any{"value": 42}))

	assert.Equal(t, []string{"/collect/init", "/collect"}, paths)
	assert.Equal(t, "install-1", lastPayload.ClientID)
	assert.Equal(t, "purchase", lastPayload.Name)
}

func TestCollectorLogEventBeforeInitializeFails(t *testing.T) {
	c := NewCollector("http://127.0.0.1:1")
	err := c.LogEvent(context.Background(), "view_item", nil)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransport))
}

func TestCollectorInitializeRequiresClientID(t *testing.T) {
	c := NewCollector("http://127.0.0.1:1")
	err := c.Initialize(context.Background(), Options{})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransport))
}

func TestCollectorMapsHTTPFailuresToTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCollector(srv.URL)
	err := c.Initialize(context.Background(), Options{ClientID: "install-1"})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransport))
}

func TestDeviceParams(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		const chromeLinux = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		params := DeviceParams(chromeLinux)
		assert.Equal(t, "desktop", params["device_class"])
		assert.Equal(t, "chrome", params["device_browser"])
	})

	t.Run("mobile browser", func(t *testing.T) {
		const safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		params := DeviceParams(safariIPhone)
		assert.Equal(t, "mobile", params["device_class"])
	})

	t.Run("empty user agent yields nil", func(t *testing.T) {
		assert.Nil(t, DeviceParams(""))
	})
}
