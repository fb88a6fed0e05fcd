package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/models"

	bolt "go.etcd.io/bbolt"
)

// NotificationStore provides a persistent per-user notification inbox.
type NotificationStore struct {
	db *bolt.DB
}

func userKey(userID int64) []byte {
	return []byte(strconv.FormatInt(userID, 10))
}

// entryKey orders entries by creation time so that reverse cursor
// iteration yields newest first. The id suffix breaks ties between
// notifications created in the same nanosecond.
func entryKey(n models.Notification) []byte {
	return []byte(fmt.Sprintf("%020d:%s", n.CreatedAt.UnixNano(), n.ID))
}

// Add appends a notification to the user's inbox.
func (s *NotificationStore) Add(ctx context.Context, userID int64, n models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.ID == "" {
		n.ID = strconv.FormatInt(n.CreatedAt.UnixNano(), 10)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(BucketNotifications)
		if root == nil {
			return fmt.Errorf("bucket not found: %s", BucketNotifications)
		}

		inbox, err := root.CreateBucketIfNotExists(userKey(userID))
		if err != nil {
			return fmt.Errorf("failed to create inbox for user %d: %w", userID, err)
		}

		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}

		return inbox.Put(entryKey(n), data)
	})
}

// List returns notifications for a user, newest first, using
// cursor-based pagination. The returned cursor is empty when there are
// no further pages.
func (s *NotificationStore) List(ctx context.Context, userID int64, limit int, cursor string) ([]models.Notification, string, error) {
	if limit <= 0 {
		limit = 20
	}

	lastRead := s.getLastRead(userID)

	var notifications []models.Notification
	var nextCursor string

	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(BucketNotifications)
		if root == nil {
			return nil
		}
		inbox := root.Bucket(userKey(userID))
		if inbox == nil {
			return nil
		}

		c := inbox.Cursor()
		var k, v []byte
		if cursor == "" {
			k, v = c.Last()
		} else {
			// Position just before the cursor key.
			k, v = c.Seek([]byte(cursor))
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		}

		for ; k != nil; k, v = c.Prev() {
			var n models.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			if !lastRead.IsZero() && !n.CreatedAt.After(lastRead) {
				n.Read = true
			}
			notifications = append(notifications, n)
			if len(notifications) == limit {
				if prev, _ := c.Prev(); prev != nil {
					nextCursor = string(k)
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return notifications, nextCursor, nil
}

// UnreadCount returns the number of notifications created after the
// user's last-read watermark.
func (s *NotificationStore) UnreadCount(ctx context.Context, userID int64) int {
	lastRead := s.getLastRead(userID)

	var count int
	s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(BucketNotifications)
		if root == nil {
			return nil
		}
		inbox := root.Bucket(userKey(userID))
		if inbox == nil {
			return nil
		}

		return inbox.ForEach(func(_, v []byte) error {
			var n models.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return nil
			}
			if lastRead.IsZero() || n.CreatedAt.After(lastRead) {
				count++
			}
			return nil
		})
	})

	return count
}

// MarkAllRead moves the user's last-read watermark to now.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(BucketNotificationsMeta)
		if meta == nil {
			return fmt.Errorf("bucket not found: %s", BucketNotificationsMeta)
		}
		return meta.Put(userKey(userID), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

func (s *NotificationStore) getLastRead(userID int64) time.Time {
	var lastRead time.Time
	s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(BucketNotificationsMeta)
		if meta == nil {
			return nil
		}
		raw := meta.Get(userKey(userID))
		if raw == nil {
			return nil
		}
		lastRead, _ = time.Parse(time.RFC3339Nano, string(raw))
		return nil
	})
	return lastRead
}
