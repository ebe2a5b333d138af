// Package directory maps sanction roles onto Telegram chat member permissions.
//
// Telegram groups have no roles. A role here is the name of one member
// permission (send_messages, pin_messages, ...) plus a single marker role,
// the configured muted role, which stands for "every permission revoked".
package directory

import (
	"context"
	"fmt"
	"slices"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"tg-sanction/internal/logger"
	"tg-sanction/internal/sanction"
)

// PermissionNames lists every role name the directory understands besides
// the muted role, in the order MemberRoles reports them.
var PermissionNames = []string{
	"send_messages",
	"send_audios",
	"send_documents",
	"send_photos",
	"send_videos",
	"send_video_notes",
	"send_voice_notes",
	"send_polls",
	"send_other_messages",
	"add_web_page_previews",
	"change_info",
	"invite_users",
	"pin_messages",
	"manage_topics",
}

// CheckMutedRole rejects a muted role that would be read as a permission
// name. Granting that permission would otherwise count as a mute.
func CheckMutedRole(role string) error {
	if role == "" {
		return fmt.Errorf("muted role is required")
	}
	if isPermission(role) {
		return fmt.Errorf("muted role %q collides with a chat member permission", role)
	}
	return nil
}

func permissionFields(p *telego.ChatPermissions) map[string]**bool {
	return map[string]**bool{
		"send_messages":         &p.CanSendMessages,
		"send_audios":           &p.CanSendAudios,
		"send_documents":        &p.CanSendDocuments,
		"send_photos":           &p.CanSendPhotos,
		"send_videos":           &p.CanSendVideos,
		"send_video_notes":      &p.CanSendVideoNotes,
		"send_voice_notes":      &p.CanSendVoiceNotes,
		"send_polls":            &p.CanSendPolls,
		"send_other_messages":   &p.CanSendOtherMessages,
		"add_web_page_previews": &p.CanAddWebPagePreviews,
		"change_info":           &p.CanChangeInfo,
		"invite_users":          &p.CanInviteUsers,
		"pin_messages":          &p.CanPinMessages,
		"manage_topics":         &p.CanManageTopics,
	}
}

// TelegramDirectory implements sanction.Directory, sanction.RoleLister and
// sanction.Restrictor with Bot API calls.
type TelegramDirectory struct {
	bot       *telego.Bot
	mutedRole string
	// If not nil, every Bot API call waits on it. Restoring many overdue
	// sanctions at startup would otherwise hit Telegram's flood limits.
	limiter *rate.Limiter
}

var (
	_ sanction.Directory  = (*TelegramDirectory)(nil)
	_ sanction.RoleLister = (*TelegramDirectory)(nil)
	_ sanction.Restrictor = (*TelegramDirectory)(nil)
)

func NewTelegramDirectory(bot *telego.Bot, mutedRole string, limiter *rate.Limiter) *TelegramDirectory {
	return &TelegramDirectory{bot: bot, mutedRole: mutedRole, limiter: limiter}
}

func (d *TelegramDirectory) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for bot api rate limit: %w", err)
	}
	return nil
}

// AddRoles grants each named permission. Adding the muted role revokes all
// of them instead.
func (d *TelegramDirectory) AddRoles(ctx context.Context, subject sanction.Subject, roles []string) error {
	muted := false
	for _, role := range roles {
		if role == d.mutedRole {
			muted = true
			continue
		}
		if !isPermission(role) {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	var perms telego.ChatPermissions
	if !muted {
		current, err := d.memberPermissions(ctx, subject)
		if err != nil {
			return err
		}
		perms = current
		fields := permissionFields(&perms)
		for _, role := range roles {
			*fields[role] = boolPtr(true)
		}
	} else {
		perms = noPermissions()
	}

	return d.restrict(ctx, subject, perms)
}

// Restrict applies restrictedRole and revokes the taken permissions with a
// single restrictChatMember call. The muted role already revokes everything,
// so muting needs no lookup of the member's current permissions.
func (d *TelegramDirectory) Restrict(ctx context.Context, subject sanction.Subject, restrictedRole string, taken []string) error {
	if restrictedRole != d.mutedRole && !isPermission(restrictedRole) {
		return fmt.Errorf("unknown role %q", restrictedRole)
	}
	for _, role := range taken {
		if role != d.mutedRole && !isPermission(role) {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	if restrictedRole == d.mutedRole {
		return d.restrict(ctx, subject, noPermissions())
	}

	perms, err := d.memberPermissions(ctx, subject)
	if err != nil {
		return err
	}
	fields := permissionFields(&perms)
	for _, role := range taken {
		if role != d.mutedRole {
			*fields[role] = boolPtr(false)
		}
	}
	*fields[restrictedRole] = boolPtr(true)
	return d.restrict(ctx, subject, perms)
}

// RemoveRole revokes one permission. Removing the muted role keeps whatever
// the member has been granted since, or falls back to the chat defaults when
// that is nothing.
func (d *TelegramDirectory) RemoveRole(ctx context.Context, subject sanction.Subject, role string) error {
	if role != d.mutedRole && !isPermission(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	perms, err := d.memberPermissions(ctx, subject)
	if err != nil {
		return err
	}

	if role == d.mutedRole {
		if len(granted(perms)) == 0 {
			perms, err = d.chatDefaults(ctx, subject.GroupID)
			if err != nil {
				return err
			}
		}
	} else {
		*permissionFields(&perms)[role] = boolPtr(false)
	}

	return d.restrict(ctx, subject, perms)
}

// MemberRoles lists the permissions the member currently holds.
func (d *TelegramDirectory) MemberRoles(ctx context.Context, subject sanction.Subject) ([]string, error) {
	perms, err := d.memberPermissions(ctx, subject)
	if err != nil {
		return nil, err
	}
	return granted(perms), nil
}

// Ban removes the member from the group. The Bot API has no purge window, so
// any positive purgeDays revokes all of the member's messages.
func (d *TelegramDirectory) Ban(ctx context.Context, subject sanction.Subject, purgeDays int, reason string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID:         telego.ChatID{ID: subject.GroupID},
		UserID:         subject.UserID,
		RevokeMessages: purgeDays > 0,
	})
	if err != nil {
		return fmt.Errorf("ban chat member %s: %w", subject, err)
	}
	logger.Debugf("Banned user %d in chat %d (purge days: %d, reason: %s)", subject.UserID, subject.GroupID, purgeDays, reason)
	return nil
}

func (d *TelegramDirectory) Unban(ctx context.Context, subject sanction.Subject) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       telego.ChatID{ID: subject.GroupID},
		UserID:       subject.UserID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("unban chat member %s: %w", subject, err)
	}
	logger.Debugf("Unbanned user %d in chat %d", subject.UserID, subject.GroupID)
	return nil
}

func (d *TelegramDirectory) restrict(ctx context.Context, subject sanction.Subject, perms telego.ChatPermissions) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	err := d.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:                        telego.ChatID{ID: subject.GroupID},
		UserID:                        subject.UserID,
		Permissions:                   perms,
		UseIndependentChatPermissions: true,
	})
	if err != nil {
		return fmt.Errorf("restrict chat member %s: %w", subject, err)
	}
	logger.Debugf("Set permissions of user %d in chat %d to %v", subject.UserID, subject.GroupID, granted(perms))
	return nil
}

// memberPermissions returns the member's effective permissions. Only
// restricted members carry their own; everyone else gets the chat defaults.
func (d *TelegramDirectory) memberPermissions(ctx context.Context, subject sanction.Subject) (telego.ChatPermissions, error) {
	if err := d.wait(ctx); err != nil {
		return telego.ChatPermissions{}, err
	}
	member, err := d.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: subject.GroupID},
		UserID: subject.UserID,
	})
	if err != nil {
		return telego.ChatPermissions{}, fmt.Errorf("get chat member %s: %w", subject, err)
	}
	if restricted, ok := member.(*telego.ChatMemberRestricted); ok {
		return restrictedPermissions(restricted), nil
	}
	return d.chatDefaults(ctx, subject.GroupID)
}

func (d *TelegramDirectory) chatDefaults(ctx context.Context, groupID int64) (telego.ChatPermissions, error) {
	if err := d.wait(ctx); err != nil {
		return telego.ChatPermissions{}, err
	}
	chat, err := d.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: groupID},
	})
	if err != nil {
		return telego.ChatPermissions{}, fmt.Errorf("get chat %d: %w", groupID, err)
	}
	if chat.Permissions == nil {
		return telego.ChatPermissions{}, nil
	}
	return *chat.Permissions, nil
}

func restrictedPermissions(m *telego.ChatMemberRestricted) telego.ChatPermissions {
	return telego.ChatPermissions{
		CanSendMessages:       boolPtr(m.CanSendMessages),
		CanSendAudios:         boolPtr(m.CanSendAudios),
		CanSendDocuments:      boolPtr(m.CanSendDocuments),
		CanSendPhotos:         boolPtr(m.CanSendPhotos),
		CanSendVideos:         boolPtr(m.CanSendVideos),
		CanSendVideoNotes:     boolPtr(m.CanSendVideoNotes),
		CanSendVoiceNotes:     boolPtr(m.CanSendVoiceNotes),
		CanSendPolls:          boolPtr(m.CanSendPolls),
		CanSendOtherMessages:  boolPtr(m.CanSendOtherMessages),
		CanAddWebPagePreviews: boolPtr(m.CanAddWebPagePreviews),
		CanChangeInfo:         boolPtr(m.CanChangeInfo),
		CanInviteUsers:        boolPtr(m.CanInviteUsers),
		CanPinMessages:        boolPtr(m.CanPinMessages),
		CanManageTopics:       boolPtr(m.CanManageTopics),
	}
}

func noPermissions() telego.ChatPermissions {
	var perms telego.ChatPermissions
	for _, field := range permissionFields(&perms) {
		*field = boolPtr(false)
	}
	return perms
}

func granted(perms telego.ChatPermissions) []string {
	fields := permissionFields(&perms)
	roles := []string{}
	for _, name := range PermissionNames {
		if v := *fields[name]; v != nil && *v {
			roles = append(roles, name)
		}
	}
	return roles
}

func isPermission(role string) bool {
	return slices.Contains(PermissionNames, role)
}

func boolPtr(b bool) *bool {
	return &b
}
