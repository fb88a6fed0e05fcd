package moderation_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Amine830/ReadSphere-sub000/internal/database/sqlitestore"
	"github.com/Amine830/ReadSphere-sub000/internal/models"
	"github.com/Amine830/ReadSphere-sub000/internal/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID     int64 = 100
	moderatorID int64 = 101
	plainUserID int64 = 102
)

const testRolesConfig = `{
	"roles": {
		"admin": {
			"description": "Full moderation access",
			"permissions": ["view_reports", "resolve_report", "reject_report",
				"delete_comment", "restore_book", "warn_user", "ban_user", "view_audit_log"]
		},
		"moderator": {
			"description": "Day to day moderation",
			"permissions": ["view_reports", "resolve_report", "reject_report", "delete_comment"]
		}
	},
	"users": [
		{"id": 100, "name": "alice", "role": "admin"},
		{"id": 101, "name": "bob", "role": "moderator"}
	]
}`

// recordingNotifier captures deliveries so tests can assert on them.
type recordingNotifier struct {
	mu        sync.Mutex
	direct    map[int64][]models.Notification
	broadcast []models.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{direct: make(map[int64][]models.Notification)}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, notif models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct[userID] = append(n.direct[userID], notif)
	return nil
}

func (n *recordingNotifier) NotifyModerators(ctx context.Context, notif models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcast = append(n.broadcast, notif)
	return nil
}

func (n *recordingNotifier) sentTo(userID int64) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.direct[userID]...)
}

func (n *recordingNotifier) broadcasts() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.broadcast...)
}

type engineFixture struct {
	engine   *moderation.Engine
	store    *sqlitestore.Store
	notifier *recordingNotifier
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()
	tmpDir := t.TempDir()

	store, err := sqlitestore.Open(sqlitestore.Options{Path: filepath.Join(tmpDir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rolesPath := filepath.Join(tmpDir, "roles.json")
	require.NoError(t, os.WriteFile(rolesPath, []byte(testRolesConfig), 0600))
	roles, err := moderation.NewRoles(rolesPath)
	require.NoError(t, err)

	notifier := newRecordingNotifier()
	return &engineFixture{
		engine:   moderation.NewEngine(store, roles, notifier),
		store:    store,
		notifier: notifier,
	}
}

func (f *engineFixture) seedComment(t *testing.T, authorID int64) *models.Comment {
	t.Helper()
	ctx := context.Background()
	book := &models.Book{OwnerID: 1, Title: "Annihilation"}
	require.NoError(t, f.store.CreateBook(ctx, book))
	c := &models.Comment{BookID: book.ID, AuthorID: authorID, Content: "the ending recontextualizes everything"}
	require.NoError(t, f.store.CreateComment(ctx, c))
	return c
}

func TestReportComment(t *testing.T) {
	ctx := context.Background()

	t.Run("valid report", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		receipt, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is abusive toward the author")
		require.NoError(t, err)
		require.NotNil(t, receipt.Report)
		assert.Equal(t, moderation.ReportStatusPending, receipt.Report.Status)
		assert.False(t, receipt.TriggeredAutoRemoval)

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.PendingReportCount)
		assert.True(t, got.Visible())
	})

	t.Run("reason length bounds", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		_, err := f.engine.ReportComment(ctx, c.ID, 50, "too short")
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))

		_, err = f.engine.ReportComment(ctx, c.ID, 50, "   padded   ")
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))
	})

	t.Run("unknown comment", func(t *testing.T) {
		f := setupEngine(t)
		_, err := f.engine.ReportComment(ctx, 9999, 50, "reporting a comment that is gone")
		assert.True(t, moderation.IsKind(err, moderation.KindNotFound))
	})

	t.Run("self report rejected", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		_, err := f.engine.ReportComment(ctx, c.ID, plainUserID, "trying to report my own words")
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))
	})

	t.Run("duplicate report names the pending status", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		_, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is clearly spam")
		require.NoError(t, err)

		_, err = f.engine.ReportComment(ctx, c.ID, 50, "reporting the same thing again")
		require.Error(t, err)
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))
		assert.Contains(t, err.Error(), "pending review")
	})

	t.Run("duplicate report names the handled status", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		receipt, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is clearly spam")
		require.NoError(t, err)

		_, err = f.engine.RejectReport(ctx, receipt.Report.ID, moderatorID)
		require.NoError(t, err)

		_, err = f.engine.ReportComment(ctx, c.ID, 50, "second attempt after the reject")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
	})

	t.Run("reporting a removed comment conflicts", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		require.NoError(t, f.engine.DeleteComment(ctx, c.ID, moderatorID, true))

		_, err := f.engine.ReportComment(ctx, c.ID, 50, "reporting after the removal")
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
	})
}

func TestAutoRemoval(t *testing.T) {
	ctx := context.Background()

	t.Run("fifth report removes the comment", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		for reporter := int64(50); reporter < 54; reporter++ {
			receipt, err := f.engine.ReportComment(ctx, c.ID, reporter, "coordinated harassment in this thread")
			require.NoError(t, err)
			assert.False(t, receipt.TriggeredAutoRemoval)
		}

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.PendingReportCount)
		assert.True(t, got.Visible())

		receipt, err := f.engine.ReportComment(ctx, c.ID, 54, "the final report that tips it over")
		require.NoError(t, err)
		assert.True(t, receipt.TriggeredAutoRemoval)
		assert.Equal(t, moderation.ReportStatusResolved, receipt.Report.Status)

		got, err = f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdminDeleted)
		require.NotNil(t, got.DeletedBy)
		assert.Equal(t, moderation.SystemActorID, *got.DeletedBy)
		assert.Zero(t, got.PendingReportCount)

		page, err := f.engine.ListReportedComments(ctx, moderation.ReportStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Zero(t, page.Total)

		resolved, err := f.engine.ListReportedComments(ctx, moderation.ReportStatusResolved, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 5, resolved.Total)
		for _, item := range resolved.Items {
			require.NotNil(t, item.Report.ResolvedBy)
			assert.Equal(t, moderation.SystemActorID, *item.Report.ResolvedBy)
		}
	})

	t.Run("removal is audited and notified", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		for reporter := int64(50); reporter < 55; reporter++ {
			_, err := f.engine.ReportComment(ctx, c.ID, reporter, "repeated personal attacks in here")
			require.NoError(t, err)
		}

		actions, err := f.engine.ListActions(ctx, 50)
		require.NoError(t, err)

		var systemDeletes int
		for _, a := range actions {
			if a.Action == moderation.ActionDelete && a.System() {
				systemDeletes++
				assert.Contains(t, a.Reason, "removed automatically after 5 reports")
			}
		}
		assert.Equal(t, 1, systemDeletes)

		require.NotEmpty(t, f.notifier.broadcasts())
		authorNotifs := f.notifier.sentTo(plainUserID)
		require.Len(t, authorNotifs, 1)
		assert.Equal(t, models.NotificationCommentRemoved, authorNotifs[0].Type)
		assert.Contains(t, authorNotifs[0].Message, "5 reports")
	})

	t.Run("concurrent reports trigger exactly once", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		const reporters = 8
		results := make(chan *moderation.ReportReceipt, reporters)
		var wg sync.WaitGroup
		for i := 0; i < reporters; i++ {
			wg.Add(1)
			go func(reporter int64) {
				defer wg.Done()
				receipt, err := f.engine.ReportComment(ctx, c.ID, reporter, "racing to report this comment now")
				if err == nil {
					results <- receipt
				}
			}(int64(200 + i))
		}
		wg.Wait()
		close(results)

		var triggered int
		for receipt := range results {
			if receipt.TriggeredAutoRemoval {
				triggered++
			}
		}
		assert.Equal(t, 1, triggered)

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdminDeleted)
	})
}

func TestResolveReport(t *testing.T) {
	ctx := context.Background()

	t.Run("resolve removes the comment", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		receipt, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is targeted abuse")
		require.NoError(t, err)

		commentID, err := f.engine.ResolveReport(ctx, receipt.Report.ID, moderatorID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, commentID)

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdminDeleted)
		require.NotNil(t, got.DeletedBy)
		assert.Equal(t, moderatorID, *got.DeletedBy)
		assert.Zero(t, got.PendingReportCount)

		assert.Len(t, f.notifier.sentTo(plainUserID), 1)
		assert.Len(t, f.notifier.sentTo(50), 1)
	})

	t.Run("other pending reports stay pending", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		first, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is targeted abuse")
		require.NoError(t, err)
		_, err = f.engine.ReportComment(ctx, c.ID, 51, "agreed, reporting this one too")
		require.NoError(t, err)

		_, err = f.engine.ResolveReport(ctx, first.Report.ID, moderatorID)
		require.NoError(t, err)

		page, err := f.engine.ListReportedComments(ctx, moderation.ReportStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.PendingReportCount)
	})

	t.Run("resolving twice conflicts", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		receipt, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is targeted abuse")
		require.NoError(t, err)

		_, err = f.engine.ResolveReport(ctx, receipt.Report.ID, moderatorID)
		require.NoError(t, err)

		_, err = f.engine.ResolveReport(ctx, receipt.Report.ID, adminID)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
		assert.Contains(t, err.Error(), "resolved")
	})

	t.Run("permission required", func(t *testing.T) {
		f := setupEngine(t)
		_, err := f.engine.ResolveReport(ctx, 1, plainUserID)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})

	t.Run("unknown report", func(t *testing.T) {
		f := setupEngine(t)
		_, err := f.engine.ResolveReport(ctx, 9999, moderatorID)
		assert.True(t, moderation.IsKind(err, moderation.KindNotFound))
	})
}

func TestRejectReport(t *testing.T) {
	ctx := context.Background()

	t.Run("reject keeps the comment visible", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		_, err := f.engine.ReportComment(ctx, c.ID, 50, "this review disagrees with mine")
		require.NoError(t, err)
		receipt, err := f.engine.ReportComment(ctx, c.ID, 51, "honestly nothing wrong with it")
		require.NoError(t, err)

		commentID, err := f.engine.RejectReport(ctx, receipt.Report.ID, moderatorID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, commentID)

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.Visible())
		assert.Equal(t, 1, got.PendingReportCount, "counter drops by exactly one")
	})

	t.Run("rejecting twice conflicts", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		receipt, err := f.engine.ReportComment(ctx, c.ID, 50, "this review disagrees with mine")
		require.NoError(t, err)

		_, err = f.engine.RejectReport(ctx, receipt.Report.ID, moderatorID)
		require.NoError(t, err)

		_, err = f.engine.RejectReport(ctx, receipt.Report.ID, moderatorID)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
	})

	t.Run("permission required", func(t *testing.T) {
		f := setupEngine(t)
		_, err := f.engine.RejectReport(ctx, 1, plainUserID)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})
}

func TestDeleteComment(t *testing.T) {
	ctx := context.Background()

	t.Run("author self delete", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		require.NoError(t, f.engine.DeleteComment(ctx, c.ID, plainUserID, false))

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDeleted)
		assert.False(t, got.IsAdminDeleted)

		err = f.engine.DeleteComment(ctx, c.ID, plainUserID, false)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
	})

	t.Run("non author cannot self delete", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		err := f.engine.DeleteComment(ctx, c.ID, 50, false)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})

	t.Run("moderator delete resolves pending reports", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		_, err := f.engine.ReportComment(ctx, c.ID, 50, "this comment is targeted abuse")
		require.NoError(t, err)

		require.NoError(t, f.engine.DeleteComment(ctx, c.ID, moderatorID, true))

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, got.IsAdminDeleted)
		assert.Zero(t, got.PendingReportCount)

		page, err := f.engine.ListReportedComments(ctx, moderation.ReportStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Zero(t, page.Total)

		assert.NotEmpty(t, f.notifier.sentTo(plainUserID))
	})

	t.Run("moderator delete requires privileges", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		err := f.engine.DeleteComment(ctx, c.ID, plainUserID, true)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})
}

func TestUpdateComment(t *testing.T) {
	ctx := context.Background()

	t.Run("author edits", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		require.NoError(t, f.engine.UpdateComment(ctx, c.ID, "a fuller second reading of the book", plainUserID))

		got, err := f.store.GetComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "a fuller second reading of the book", got.Content)
		assert.True(t, got.IsEdited)
	})

	t.Run("non author forbidden", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		err := f.engine.UpdateComment(ctx, c.ID, "rewriting someone else's words", 50)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})

	t.Run("content bounds", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		err := f.engine.UpdateComment(ctx, c.ID, "hi", plainUserID)
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))
	})

	t.Run("cannot edit a removed comment", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)
		require.NoError(t, f.engine.DeleteComment(ctx, c.ID, moderatorID, true))

		err := f.engine.UpdateComment(ctx, c.ID, "trying to edit after removal", plainUserID)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
	})
}

func TestBookDeleteRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes, admin restores", func(t *testing.T) {
		f := setupEngine(t)
		book := &models.Book{OwnerID: plainUserID, Title: "Piranesi"}
		require.NoError(t, f.store.CreateBook(ctx, book))
		c := &models.Comment{BookID: book.ID, AuthorID: 50, Content: "the halls are a whole character"}
		require.NoError(t, f.store.CreateComment(ctx, c))

		require.NoError(t, f.engine.DeleteBook(ctx, book.ID, plainUserID))

		comments, total, err := f.engine.VisibleComments(ctx, book.ID, 99, 1, 20)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, comments)

		require.NoError(t, f.engine.RestoreBook(ctx, book.ID, adminID))

		_, total, err = f.engine.VisibleComments(ctx, book.ID, 99, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		f := setupEngine(t)
		book := &models.Book{OwnerID: plainUserID, Title: "Piranesi"}
		require.NoError(t, f.store.CreateBook(ctx, book))

		err := f.engine.DeleteBook(ctx, book.ID, 50)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})

	t.Run("moderator cannot restore, admin can", func(t *testing.T) {
		f := setupEngine(t)
		book := &models.Book{OwnerID: plainUserID, Title: "Piranesi"}
		require.NoError(t, f.store.CreateBook(ctx, book))
		require.NoError(t, f.engine.DeleteBook(ctx, book.ID, adminID))

		err := f.engine.RestoreBook(ctx, book.ID, moderatorID)
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))

		require.NoError(t, f.engine.RestoreBook(ctx, book.ID, adminID))
	})

	t.Run("double delete and stray restore conflict", func(t *testing.T) {
		f := setupEngine(t)
		book := &models.Book{OwnerID: plainUserID, Title: "Piranesi"}
		require.NoError(t, f.store.CreateBook(ctx, book))

		err := f.engine.RestoreBook(ctx, book.ID, adminID)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))

		require.NoError(t, f.engine.DeleteBook(ctx, book.ID, adminID))
		err = f.engine.DeleteBook(ctx, book.ID, adminID)
		assert.True(t, moderation.IsKind(err, moderation.KindConflict))
	})
}

func TestLogModerationAction(t *testing.T) {
	ctx := context.Background()

	t.Run("valid standalone action", func(t *testing.T) {
		f := setupEngine(t)
		c := f.seedComment(t, plainUserID)

		require.NoError(t, f.engine.LogModerationAction(ctx, moderatorID, c.ID, moderation.ActionWarnUser, "first warning for tone"))

		actions, err := f.engine.ListActions(ctx, 10)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, moderation.ActionWarnUser, actions[0].Action)
	})

	t.Run("invalid action type", func(t *testing.T) {
		f := setupEngine(t)
		err := f.engine.LogModerationAction(ctx, moderatorID, 1, moderation.ActionType("vaporize"), "")
		assert.True(t, moderation.IsKind(err, moderation.KindValidation))
	})

	t.Run("moderator privileges required", func(t *testing.T) {
		f := setupEngine(t)
		err := f.engine.LogModerationAction(ctx, plainUserID, 1, moderation.ActionIgnore, "")
		assert.True(t, moderation.IsKind(err, moderation.KindForbidden))
	})
}
