package handler

import (
	"sync"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-sanction/internal/config"
)

var (
	globalConfig *config.Config
	handlers     sync.WaitGroup
)

func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// SetupMessageHandlers configures all bot update handlers
func SetupMessageHandlers(bh *th.BotHandler, bot *telego.Bot) {
	botID := bot.ID()

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		handlers.Add(1)
		defer handlers.Done()
		return handleChatMemberUpdate(ctx.Context(), botID, update)
	}, th.AnyChatMember())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		handlers.Add(1)
		defer handlers.Done()
		return handleMyChatMemberUpdate(botID, update)
	}, th.AnyMyChatMember())
}

// WaitForHandlers blocks until every running update handler has returned.
func WaitForHandlers() {
	handlers.Wait()
}
