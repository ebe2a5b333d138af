package sanction

import (
	"context"

	"tg-sanction/internal/logger"
)

// MaxPurgeDays is the platform limit on how much message history a ban may purge.
const MaxPurgeDays = 7

// DefaultBanReason is recorded when a ban is issued without a reason.
const DefaultBanReason = "None specified"

// ClampPurgeDays returns min(requested, MaxPurgeDays); nil or negative is 0.
func ClampPurgeDays(requested *int) int {
	if requested == nil || *requested < 0 {
		return 0
	}
	return min(*requested, MaxPurgeDays)
}

// Actions applies immediate, non-expiring sanctions. It keeps no state and
// never retries.
type Actions struct {
	directory Directory
}

func NewActions(directory Directory) *Actions {
	return &Actions{directory: directory}
}

// ApplyBan bans subject, purging up to MaxPurgeDays of message history.
func (a *Actions) ApplyBan(ctx context.Context, subject Subject, purgeDays *int, reason string) error {
	if reason == "" {
		reason = DefaultBanReason
	}
	days := ClampPurgeDays(purgeDays)

	if err := a.directory.Ban(ctx, subject, days, reason); err != nil {
		immediateActionCount.WithLabelValues("ban", "error").Inc()
		logger.Errorf("Failed to ban user %s: %v", subject, err)
		return directoryErr("ban", subject, err)
	}
	immediateActionCount.WithLabelValues("ban", "ok").Inc()
	logger.Infof("Banned user %s (purge %d days): %s", subject, days, reason)
	return nil
}

// ApplyUnban lifts a ban on subject.
func (a *Actions) ApplyUnban(ctx context.Context, subject Subject) error {
	if err := a.directory.Unban(ctx, subject); err != nil {
		immediateActionCount.WithLabelValues("unban", "error").Inc()
		logger.Errorf("Failed to unban user %s: %v", subject, err)
		return directoryErr("unban", subject, err)
	}
	immediateActionCount.WithLabelValues("unban", "ok").Inc()
	logger.Infof("Unbanned user %s", subject)
	return nil
}
