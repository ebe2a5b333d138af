package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-sanction/internal/config"
	"tg-sanction/internal/logger"
)

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
}

// Start starts the bot handler
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler and waits for running handlers
func (b *BotService) Stop(ctx context.Context) error {
	return b.Handler.StopWithContext(ctx)
}

// NewBot creates the Bot API client shared by the webhook and the directory.
func NewBot(cfg *config.Config) (*telego.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithDefaultDebugLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	return bot, nil
}

// Initialize registers the webhook and returns the update handler and the
// HTTP server that feeds it.
func Initialize(ctx context.Context, cfg *config.Config, bot *telego.Bot) (*BotService, *WebhookServer, error) {
	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s", botUser.Username)

	// Delete any existing webhook
	if err := bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	secretToken := "sanction_webhook_" + cfg.Bot.Token[len(cfg.Bot.Token)-6:]

	bh, server, err := SetupWebhook(ctx, bot, WebhookOptions{
		Endpoint:    cfg.Bot.Webhook.Endpoint,
		ListenPort:  cfg.Bot.Webhook.ListenPort,
		MetricsPath: cfg.Metrics.Path,
		SecretToken: secretToken,
		CertFile:    cfg.Bot.Webhook.CertFile,
		KeyFile:     cfg.Bot.Webhook.KeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup webhook: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
	}, server, nil
}
