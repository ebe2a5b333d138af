package bot

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPath(t *testing.T) {
	tests := []struct {
		name    string
		opts    WebhookOptions
		want    string
		wantErr bool
	}{
		{name: "https endpoint", opts: WebhookOptions{Endpoint: "https://bot.example.com/tg/hook"}, want: "/tg/hook"},
		{name: "default path", opts: WebhookOptions{Endpoint: "https://bot.example.com"}, want: "/webhook"},
		{name: "tls on the server", opts: WebhookOptions{Endpoint: "http://bot.example.com/hook", CertFile: "c.pem", KeyFile: "k.pem"}, want: "/hook"},
		{name: "missing endpoint", opts: WebhookOptions{}, wantErr: true},
		{name: "plain http", opts: WebhookOptions{Endpoint: "http://bot.example.com/hook"}, wantErr: true},
		{name: "metrics collision", opts: WebhookOptions{Endpoint: "https://bot.example.com/metrics", MetricsPath: "/metrics"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := webhookPath(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(newServeMux("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/other")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
