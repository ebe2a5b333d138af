package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tg-sanction/internal/logger"
)

// allowedUpdates are the update kinds the engine reacts to.
var allowedUpdates = []string{"chat_member", "my_chat_member"}

// WebhookServer represents a webhook HTTP server
type WebhookServer struct {
	server   *http.Server
	certFile string
	keyFile  string
}

type WebhookOptions struct {
	Endpoint    string
	ListenPort  string
	MetricsPath string
	SecretToken string
	CertFile    string
	KeyFile     string
}

// Start starts the webhook server
func (ws *WebhookServer) Start() error {
	logger.Infof("Starting HTTP server on %s", ws.server.Addr)

	if ws.certFile != "" && ws.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", ws.certFile, ws.keyFile)
		return ws.server.ListenAndServeTLS(ws.certFile, ws.keyFile)
	}

	logger.Warning("Running without TLS. Make sure you have a HTTPS proxy in front of this server")
	return ws.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ws *WebhookServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

// webhookPath validates the public endpoint and returns the path the local
// mux serves it on.
func webhookPath(opts WebhookOptions) (string, error) {
	if opts.Endpoint == "" {
		return "", fmt.Errorf("webhook endpoint is required")
	}
	if (opts.CertFile == "" || opts.KeyFile == "") && !strings.HasPrefix(opts.Endpoint, "https://") {
		return "", fmt.Errorf("HTTPS configuration required: set cert_file and key_file in config or use a HTTPS proxy")
	}
	parsed, err := url.Parse(opts.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		logger.Infof("No path specified in webhook endpoint, using default path: /webhook")
		return "/webhook", nil
	}
	if parsed.Path == opts.MetricsPath {
		return "", fmt.Errorf("webhook path %s collides with the metrics path", parsed.Path)
	}
	return parsed.Path, nil
}

// newServeMux builds the mux shared by the webhook and the metrics endpoint.
func newServeMux(metricsPath string) *http.ServeMux {
	mux := http.NewServeMux()
	if metricsPath != "" {
		mux.Handle(metricsPath, promhttp.Handler())
	}
	return mux
}

// SetupWebhook registers the webhook with Telegram and wires its updates into
// a bot handler.
func SetupWebhook(ctx context.Context, bot *telego.Bot, opts WebhookOptions) (*th.BotHandler, *WebhookServer, error) {
	path, err := webhookPath(opts)
	if err != nil {
		return nil, nil, err
	}
	listenPort := opts.ListenPort
	if listenPort == "" {
		listenPort = "8443"
	}

	logger.Infof("Setting webhook to: %s", opts.Endpoint)
	err = bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            opts.Endpoint,
		AllowedUpdates: allowedUpdates,
		SecretToken:    opts.SecretToken,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	webhookInfo, err := bot.GetWebhookInfo(ctx)
	if err != nil {
		logger.Warningf("Failed to get webhook info: %v", err)
	} else {
		logger.Infof("Webhook info: URL=%s, PendingUpdateCount=%d, AllowedUpdates=%v",
			webhookInfo.URL, webhookInfo.PendingUpdateCount, webhookInfo.AllowedUpdates)
		if webhookInfo.LastErrorDate > 0 {
			logger.Warningf("Webhook last error: [%d] %s", webhookInfo.LastErrorDate, webhookInfo.LastErrorMessage)
		}
	}

	mux := newServeMux(opts.MetricsPath)
	server := &http.Server{
		Addr:    "0.0.0.0:" + listenPort,
		Handler: mux,
	}

	updates, err := bot.UpdatesViaWebhook(ctx,
		telego.WebhookHTTPServeMux(mux, path, opts.SecretToken),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get updates channel: %w", err)
	}

	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	return bh, &WebhookServer{
		server:   server,
		certFile: opts.CertFile,
		keyFile:  opts.KeyFile,
	}, nil
}
