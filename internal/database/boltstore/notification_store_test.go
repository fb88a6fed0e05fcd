package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestNotificationStore(t *testing.T) *NotificationStore {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(Options{Path: dbPath})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store.NotificationStore()
}

func TestNotificationInbox(t *testing.T) {
	ctx := context.Background()
	store := setupTestNotificationStore(t)

	t.Run("add and list newest first", func(t *testing.T) {
		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			err := store.Add(ctx, 1, models.Notification{
				Type:      models.NotificationCommentRemoved,
				ActorID:   7,
				Message:   "your comment was removed",
				Link:      "/api/books/1/comments",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}

		got, cursor, err := store.List(ctx, 1, 20, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Empty(t, cursor)
		assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
		assert.True(t, got[1].CreatedAt.After(got[2].CreatedAt))
	})

	t.Run("inboxes are isolated per user", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, 2, models.Notification{
			Type:      models.NotificationReportResolved,
			ActorID:   7,
			Message:   "your report was resolved",
			CreatedAt: time.Now().UTC(),
		}))

		got, _, err := store.List(ctx, 2, 20, "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.NotificationReportResolved, got[0].Type)

		got, _, err = store.List(ctx, 99, 20, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Add(ctx, 3, models.Notification{
				Type:      models.NotificationModerationAlert,
				ActorID:   0,
				Message:   "a comment was removed automatically",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		first, cursor, err := store.List(ctx, 3, 2, "")
		require.NoError(t, err)
		require.Len(t, first, 2)
		require.NotEmpty(t, cursor)

		second, cursor2, err := store.List(ctx, 3, 2, cursor)
		require.NoError(t, err)
		require.Len(t, second, 2)
		require.NotEmpty(t, cursor2)
		assert.True(t, first[1].CreatedAt.After(second[0].CreatedAt))

		third, cursor3, err := store.List(ctx, 3, 2, cursor2)
		require.NoError(t, err)
		require.Len(t, third, 1)
		assert.Empty(t, cursor3)

		seen := map[string]bool{}
		for _, n := range append(append(first, second...), third...) {
			assert.False(t, seen[n.ID], "notification returned twice across pages")
			seen[n.ID] = true
		}
	})

	t.Run("unread count and mark all read", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, 4, models.Notification{
			Type:      models.NotificationCommentRemoved,
			Message:   "your comment was removed",
			CreatedAt: time.Now().UTC().Add(-time.Minute),
		}))
		require.NoError(t, store.Add(ctx, 4, models.Notification{
			Type:      models.NotificationCommentRemoved,
			Message:   "another comment was removed",
			CreatedAt: time.Now().UTC(),
		}))

		assert.Equal(t, 2, store.UnreadCount(ctx, 4))

		require.NoError(t, store.MarkAllRead(ctx, 4))
		assert.Zero(t, store.UnreadCount(ctx, 4))

		got, _, err := store.List(ctx, 4, 20, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, n := range got {
			assert.True(t, n.Read)
		}
	})
}
