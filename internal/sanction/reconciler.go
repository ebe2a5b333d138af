package sanction

import (
	"context"

	"tg-sanction/internal/logger"
)

// Reconciler re-applies the restricted role when a sanctioned member comes
// back before the sanction expired. It only reads the store and never touches
// scheduling state, so replaying a rejoin event is harmless.
type Reconciler struct {
	store     Store
	directory Directory
}

func NewReconciler(store Store, directory Directory) *Reconciler {
	return &Reconciler{store: store, directory: directory}
}

// OnRejoin re-mutes subject if an active record exists. A directory failure
// leaves the record in place so the pending expiry still restores the member.
func (r *Reconciler) OnRejoin(ctx context.Context, subject Subject) error {
	rec, err := r.store.FindBySubject(ctx, subject)
	if err != nil {
		rejoinCount.WithLabelValues("store_error").Inc()
		logger.Errorf("Failed to query sanction records for %s: %v", subject, err)
		return storeErr("find", subject, err)
	}
	if rec == nil {
		rejoinCount.WithLabelValues("not_sanctioned").Inc()
		return nil
	}

	logger.Debugf("Muted member %s rejoined the group", subject)
	if err := r.directory.AddRoles(ctx, subject, []string{rec.RestrictedRole}); err != nil {
		rejoinCount.WithLabelValues("directory_error").Inc()
		logger.Errorf("Failed to mute member %s after rejoining the group: %v", subject, err)
		return directoryErr("add_roles", subject, err)
	}

	rejoinCount.WithLabelValues("remuted").Inc()
	logger.Infof("Muted member %s was muted again after rejoining", subject)
	return nil
}
