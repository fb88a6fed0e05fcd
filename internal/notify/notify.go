// Package notify delivers moderation notifications into per-user
// inboxes. Delivery is best effort; callers treat failures as degraded
// service, not as operation failures.
package notify

import (
	"context"

	"github.com/Amine830/ReadSphere-sub000/internal/database/boltstore"
	"github.com/Amine830/ReadSphere-sub000/internal/metrics"
	"github.com/Amine830/ReadSphere-sub000/internal/models"
	"github.com/Amine830/ReadSphere-sub000/internal/moderation"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// InboxNotifier writes notifications to the BoltDB-backed inbox and
// fans moderation alerts out to every configured moderator.
type InboxNotifier struct {
	inbox *boltstore.NotificationStore
	roles *moderation.Roles
}

var _ moderation.Notifier = (*InboxNotifier)(nil)

func NewInboxNotifier(inbox *boltstore.NotificationStore, roles *moderation.Roles) *InboxNotifier {
	return &InboxNotifier{inbox: inbox, roles: roles}
}

// Notify delivers a single notification to one user.
func (n *InboxNotifier) Notify(ctx context.Context, userID int64, notif models.Notification) error {
	if userID == moderation.SystemActorID {
		return nil
	}
	if err := n.inbox.Add(ctx, userID, notif); err != nil {
		return err
	}
	metrics.NotificationsDeliveredTotal.Inc()
	return nil
}

// NotifyModerators delivers the notification to every configured
// moderator. Delivery failures to individual moderators do not stop the
// fan-out; the first error is returned after all deliveries were tried.
func (n *InboxNotifier) NotifyModerators(ctx context.Context, notif models.Notification) error {
	mods := n.roles.ListModerators()
	if len(mods) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, mod := range mods {
		g.Go(func() error {
			if err := n.Notify(ctx, mod.ID, notif); err != nil {
				log.Warn().Err(err).Int64("moderator_id", mod.ID).
					Msg("notify: failed to deliver moderator notification")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
