package handler

import (
	"context"

	"github.com/mymmrac/telego"

	"tg-sanction/internal/crash"
	"tg-sanction/internal/logger"
	"tg-sanction/internal/sanction"
	"tg-sanction/internal/service"
)

const observedBanReason = "Banned by a group administrator"

type memberChange int

const (
	changeNone memberChange = iota
	changeRejoined
	changeBanned
	changeUnbanned
)

// classifyMemberChange reads what happened to a member from its old and new
// status. A restricted member who leaves stays "restricted" with is_member
// unset, so presence is judged with MemberIsMember rather than the status.
func classifyMemberChange(update *telego.ChatMemberUpdated) memberChange {
	oldMember, newMember := update.OldChatMember, update.NewChatMember
	if oldMember == nil || newMember == nil {
		return changeNone
	}
	oldStatus, newStatus := oldMember.MemberStatus(), newMember.MemberStatus()

	switch {
	case !oldMember.MemberIsMember() && newMember.MemberIsMember():
		return changeRejoined
	case newStatus == telego.MemberStatusBanned && oldStatus != telego.MemberStatusBanned:
		return changeBanned
	case oldStatus == telego.MemberStatusBanned && newStatus != telego.MemberStatusBanned:
		return changeUnbanned
	default:
		return changeNone
	}
}

// handleChatMemberUpdate processes updates to chat members
func handleChatMemberUpdate(ctx context.Context, botID int64, update telego.Update) error {
	defer crash.Recover("chat-member-update")

	if update.ChatMember == nil || update.ChatMember.OldChatMember == nil || update.ChatMember.NewChatMember == nil {
		return nil
	}
	chatID := update.ChatMember.Chat.ID
	if globalConfig != nil && globalConfig.Bot.GroupID != -1 && chatID != globalConfig.Bot.GroupID {
		return nil
	}

	user := update.ChatMember.NewChatMember.MemberUser()
	if user.IsBot {
		return nil
	}
	subject := sanction.Subject{GroupID: chatID, UserID: user.ID}
	fromID := update.ChatMember.From.ID

	switch classifyMemberChange(update.ChatMember) {
	case changeRejoined:
		logger.Debugf("User %d joined chat %d", user.ID, chatID)
		if err := service.HandleRejoin(ctx, subject); err != nil {
			logger.Warningf("Error re-applying mute for %s: %v", subject, err)
		}
	case changeBanned:
		// bans issued through the engine are recorded by service.BanUser
		if fromID == botID {
			return nil
		}
		logger.Infof("User %d was banned in chat %d by %d", user.ID, chatID, fromID)
		service.CreateBanRecord(ctx, subject, 0, observedBanReason, fromID)
	case changeUnbanned:
		if fromID == botID {
			return nil
		}
		logger.Infof("User %d was unbanned in chat %d by %d", user.ID, chatID, fromID)
		service.MarkBanRecordUnbanned(ctx, subject, fromID)
	}
	return nil
}

// handleMyChatMemberUpdate logs changes to the bot's own rights. Without
// restrict rights every directory call fails.
func handleMyChatMemberUpdate(botID int64, update telego.Update) error {
	if update.MyChatMember == nil {
		return nil
	}
	chatID := update.MyChatMember.Chat.ID
	newMember := update.MyChatMember.NewChatMember
	if newMember == nil || newMember.MemberUser().ID != botID {
		return nil
	}

	admin, ok := newMember.(*telego.ChatMemberAdministrator)
	switch {
	case ok && admin.CanRestrictMembers:
		logger.Infof("Bot can restrict members in chat %d (promoted by %d)", chatID, update.MyChatMember.From.ID)
	case ok:
		logger.Warningf("Bot is an administrator in chat %d but cannot restrict members", chatID)
	default:
		logger.Warningf("Bot is no longer an administrator in chat %d (status %s); sanctions there will fail", chatID, newMember.MemberStatus())
	}
	return nil
}
