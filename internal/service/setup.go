// Package service owns the sanction engine and the ban audit trail.
//
// MuteUser, UnmuteUser, BanUser and UnbanUser are the entry points for a
// moderator command layer embedding this package; the daemon itself only
// feeds chat member updates through HandleRejoin and the ban record helpers.
package service

import (
	"context"
	"fmt"

	"tg-sanction/internal/config"
	"tg-sanction/internal/logger"
	"tg-sanction/internal/sanction"
	"tg-sanction/internal/storage"
)

var (
	engine        *sanction.Engine
	banRepository *storage.BanRepository
	closeStore    func() error
	globalConfig  *config.Config
)

// Initialize builds the sanction store and engine on top of directory.
// storage.Initialize and storage.MigrateAll must have run first when the
// database is enabled; Initialize does not touch the schema.
func Initialize(ctx context.Context, cfg *config.Config, directory sanction.Directory) error {
	globalConfig = cfg

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	banRepository = nil
	if storage.DB != nil {
		banRepository = storage.NewBanRepository(storage.DB)
	}

	engine = sanction.NewEngine(store, directory, sanction.Options{
		MutedRole:       cfg.Sanction.MutedRole,
		DefaultDuration: cfg.Sanction.DefaultDuration,
		ResolveTimeout:  cfg.Sanction.ResolveTimeout,
		Reporter:        reportOutcome,
	})
	return nil
}

// newStore picks where sanction records live: redis when enabled, then the
// SQL database, and process memory as a last resort.
func newStore(ctx context.Context, cfg *config.Config) (sanction.Store, error) {
	closeStore = nil
	switch {
	case cfg.Redis.Enabled:
		store, err := storage.NewRedisSanctionStore(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis sanction store: %w", err)
		}
		closeStore = store.Close
		logger.Infof("Sanction records are kept in redis (prefix %q)", cfg.Redis.Prefix)
		return store, nil
	case storage.DB != nil:
		repo := storage.NewSanctionRepository(storage.DB)
		logger.Infof("Sanction records are kept in the %s database", cfg.Database.Driver)
		return repo, nil
	default:
		logger.Warningf("No database or redis configured, pending sanctions will be lost on restart")
		return sanction.NewMemoryStore(), nil
	}
}

// Engine returns the engine built by Initialize.
func Engine() *sanction.Engine {
	return engine
}

// RestorePending re-arms the expiry of every sanction stored before startup.
func RestorePending(ctx context.Context) (int, error) {
	return engine.Restore(ctx)
}

// Shutdown stops pending timers and releases the store. Stored sanctions are
// kept for the next RestorePending.
func Shutdown() {
	if engine != nil {
		engine.Shutdown()
	}
	if closeStore != nil {
		if err := closeStore(); err != nil {
			logger.Warningf("Error closing sanction store: %v", err)
		}
	}
}

func reportOutcome(out sanction.Outcome) {
	if out.RecordLost() && out.Record != nil {
		logger.Errorf("Restore by hand for %s: add %v, remove %q", out.Subject, out.Record.TakenRoles, out.Record.RestrictedRole)
	}
}
