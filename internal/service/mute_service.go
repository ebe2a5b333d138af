package service

import (
	"context"
	"time"

	"tg-sanction/internal/sanction"
)

// MuteUser mutes a member for duration, or the configured default when zero.
// The member's current permissions are captured and given back on expiry.
func MuteUser(ctx context.Context, subject sanction.Subject, duration time.Duration, reason string) (*sanction.Task, error) {
	return engine.Mute(ctx, sanction.MuteRequest{
		Subject:  subject,
		Reason:   reason,
		Duration: duration,
	})
}

// UnmuteUser lifts a mute ahead of its expiry.
func UnmuteUser(ctx context.Context, subject sanction.Subject) error {
	return engine.Unmute(ctx, subject).AsError()
}

// HandleRejoin re-applies an active mute to a member who came back.
func HandleRejoin(ctx context.Context, subject sanction.Subject) error {
	return engine.Rejoin(ctx, subject)
}

// ActiveSanction returns the member's pending sanction, or nil.
func ActiveSanction(ctx context.Context, subject sanction.Subject) (*sanction.Record, error) {
	return engine.Active(ctx, subject)
}
