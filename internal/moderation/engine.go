package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Amine830/ReadSphere-sub000/internal/metrics"
	"github.com/Amine830/ReadSphere-sub000/internal/models"
	"github.com/Amine830/ReadSphere-sub000/internal/tracing"

	"github.com/rs/zerolog/log"
)

// Thresholds and bounds for reporting and comment content.
const (
	// AutoRemoveThreshold is the number of pending reports on a single
	// comment before it is removed automatically.
	AutoRemoveThreshold = 5
	// MinReportReasonLength and MaxReportReasonLength bound the report
	// reason, in characters after trimming.
	MinReportReasonLength = 10
	MaxReportReasonLength = 500
	// MinCommentLength and MaxCommentLength bound comment content, in
	// characters after trimming.
	MinCommentLength = 5
	MaxCommentLength = 1000
)

// Engine orchestrates comment moderation: it validates actions, enforces
// the report state machine, applies the auto-removal threshold, and
// writes the stores atomically. Audit records and notifications are
// emitted after the primary transaction commits; their failure degrades
// the operation but never unwinds it.
type Engine struct {
	store    Store
	roles    *Roles
	notifier Notifier
}

// NewEngine creates an Engine. notifier may be nil, in which case no
// notifications are delivered.
func NewEngine(store Store, roles *Roles, notifier Notifier) *Engine {
	return &Engine{store: store, roles: roles, notifier: notifier}
}

// ReportComment records a report by reporterID against commentID. If the
// pending-report count reaches AutoRemoveThreshold inside the same
// transaction, the comment is removed with the system actor and every
// pending report on it is resolved in bulk.
func (e *Engine) ReportComment(ctx context.Context, commentID, reporterID int64, reason string) (*ReportReceipt, error) {
	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); n < MinReportReasonLength || n > MaxReportReasonLength {
		return nil, validationf("report reason must be between %d and %d characters", MinReportReasonLength, MaxReportReasonLength)
	}

	ctx, span := tracing.ModerationSpan(ctx, "report_comment", commentID, reporterID)
	defer span.End()

	now := time.Now().UTC()
	receipt := &ReportReceipt{}
	var authorID, bookID int64
	var resolvedInBulk int

	err := e.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.GetComment(commentID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFoundf("comment %d not found", commentID)
		}
		if !c.Visible() {
			return conflictf("comment has already been removed")
		}
		if c.AuthorID == reporterID {
			return validationf("you cannot report your own comment")
		}

		existing, err := tx.FindReport(commentID, reporterID)
		if err != nil {
			return err
		}
		if existing != nil {
			// The duplicate's status is user-visible: a pending report
			// reads differently from one that was already handled.
			if existing.Status == ReportStatusPending {
				return validationf("you have already reported this comment; your report is pending review")
			}
			return validationf("you have already reported this comment; your report was %s", existing.Status)
		}

		r := &Report{
			CommentID:  commentID,
			ReporterID: reporterID,
			Reason:     reason,
			Status:     ReportStatusPending,
			CreatedAt:  now,
		}
		if err := tx.InsertReport(r); err != nil {
			return err
		}

		// Threshold decision comes from an authoritative count inside
		// this transaction, never from the cached counter.
		pending, err := tx.CountPendingReports(commentID)
		if err != nil {
			return err
		}
		if err := tx.SetPendingReportCount(commentID, pending); err != nil {
			return err
		}

		if pending >= AutoRemoveThreshold {
			if err := tx.SetCommentAdminDeleted(commentID, SystemActorID, now); err != nil {
				return err
			}
			resolvedInBulk, err = tx.ResolveAllPending(commentID, SystemActorID, now)
			if err != nil {
				return err
			}
			if err := tx.SetPendingReportCount(commentID, 0); err != nil {
				return err
			}
			if err := tx.RecountBookComments(c.BookID); err != nil {
				return err
			}
			r.Status = ReportStatusResolved
			receipt.TriggeredAutoRemoval = true
		}

		receipt.Report = r
		authorID, bookID = c.AuthorID, c.BookID
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return nil, err
	}

	metrics.ReportsSubmittedTotal.Inc()
	e.appendAudit(ctx, &ModerationAction{
		ModeratorID: reporterID,
		CommentID:   commentID,
		Action:      ActionReport,
		Reason:      reason,
		CreatedAt:   now,
	})

	log.Info().
		Int64("report_id", receipt.Report.ID).
		Int64("comment_id", commentID).
		Int64("reporter_id", reporterID).
		Bool("auto_removal", receipt.TriggeredAutoRemoval).
		Msg("moderation: report created")

	if receipt.TriggeredAutoRemoval {
		metrics.AutoRemovalsTotal.Inc()
		autoReason := fmt.Sprintf("removed automatically after %d reports (latest: %s)", resolvedInBulk, reason)
		e.appendAudit(ctx, &ModerationAction{
			ModeratorID: SystemActorID,
			CommentID:   commentID,
			Action:      ActionDelete,
			Reason:      autoReason,
			CreatedAt:   now,
		})

		link := fmt.Sprintf("/books/%d", bookID)
		e.notifyModerators(ctx, models.Notification{
			Type:      models.NotificationModerationAlert,
			ActorID:   SystemActorID,
			Message:   fmt.Sprintf("Comment %d was removed automatically after %d reports. Triggering reason: %s", commentID, resolvedInBulk, reason),
			Link:      link,
			CreatedAt: now,
		})
		// The author notification echoes the triggering reason. That is
		// the current product behavior; whether it should is an open
		// privacy question.
		e.notify(ctx, authorID, models.Notification{
			Type:      models.NotificationCommentRemoved,
			ActorID:   SystemActorID,
			Message:   fmt.Sprintf("Your comment was removed after receiving %d reports (latest reason: %s)", resolvedInBulk, reason),
			Link:      link,
			CreatedAt: now,
		})

		log.Warn().
			Int64("comment_id", commentID).
			Int("reports_resolved", resolvedInBulk).
			Msg("moderation: auto-removal threshold triggered")
	}

	return receipt, nil
}

// ResolveReport validates a pending report: the report transitions to
// resolved and the comment is removed as a moderator deletion. Other
// pending reports on the same comment are left pending; only the
// counter is recomputed.
func (e *Engine) ResolveReport(ctx context.Context, reportID, moderatorID int64) (int64, error) {
	if !e.roles.HasPermission(moderatorID, PermissionResolveReport) {
		return 0, forbiddenf("you do not have permission to resolve reports")
	}

	ctx, span := tracing.ModerationSpan(ctx, "resolve_report", reportID, moderatorID)
	defer span.End()

	now := time.Now().UTC()
	var commentID, authorID, reporterID, bookID int64
	var reason string

	err := e.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetReport(reportID)
		if err != nil {
			return err
		}
		if r == nil {
			return notFoundf("report %d not found", reportID)
		}
		if r.Status != ReportStatusPending {
			return conflictf("report has already been %s", r.Status)
		}
		if err := tx.MarkReportResolved(reportID, ReportStatusResolved, moderatorID, now); err != nil {
			return err
		}

		c, err := tx.GetComment(r.CommentID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFoundf("comment %d not found", r.CommentID)
		}
		if !c.IsAdminDeleted {
			if err := tx.SetCommentAdminDeleted(c.ID, moderatorID, now); err != nil {
				return err
			}
		}

		pending, err := tx.CountPendingReports(c.ID)
		if err != nil {
			return err
		}
		if err := tx.SetPendingReportCount(c.ID, pending); err != nil {
			return err
		}
		if err := tx.RecountBookComments(c.BookID); err != nil {
			return err
		}

		commentID, authorID, bookID = c.ID, c.AuthorID, c.BookID
		reporterID, reason = r.ReporterID, r.Reason
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return 0, err
	}

	metrics.ModerationActionsTotal.WithLabelValues(string(ActionResolveReport)).Inc()
	e.appendAudit(ctx, &ModerationAction{
		ModeratorID: moderatorID,
		CommentID:   commentID,
		Action:      ActionResolveReport,
		Reason:      reason,
		CreatedAt:   now,
	})

	link := fmt.Sprintf("/books/%d", bookID)
	e.notify(ctx, authorID, models.Notification{
		Type:      models.NotificationCommentRemoved,
		ActorID:   moderatorID,
		Message:   "Your comment was removed by a moderator following a report.",
		Link:      link,
		CreatedAt: now,
	})
	e.notify(ctx, reporterID, models.Notification{
		Type:      models.NotificationReportResolved,
		ActorID:   moderatorID,
		Message:   "A comment you reported has been reviewed and removed.",
		Link:      link,
		CreatedAt: now,
	})

	log.Info().
		Int64("report_id", reportID).
		Int64("comment_id", commentID).
		Int64("moderator_id", moderatorID).
		Msg("moderation: report resolved, comment removed")

	return commentID, nil
}

// RejectReport dismisses a pending report. The comment stays visible and
// the pending counter drops by one.
func (e *Engine) RejectReport(ctx context.Context, reportID, moderatorID int64) (int64, error) {
	if !e.roles.HasPermission(moderatorID, PermissionRejectReport) {
		return 0, forbiddenf("you do not have permission to reject reports")
	}

	ctx, span := tracing.ModerationSpan(ctx, "reject_report", reportID, moderatorID)
	defer span.End()

	now := time.Now().UTC()
	var commentID int64
	var reason string

	err := e.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.GetReport(reportID)
		if err != nil {
			return err
		}
		if r == nil {
			return notFoundf("report %d not found", reportID)
		}
		if r.Status != ReportStatusPending {
			return conflictf("report has already been %s", r.Status)
		}
		if err := tx.MarkReportResolved(reportID, ReportStatusRejected, moderatorID, now); err != nil {
			return err
		}

		pending, err := tx.CountPendingReports(r.CommentID)
		if err != nil {
			return err
		}
		if err := tx.SetPendingReportCount(r.CommentID, pending); err != nil {
			return err
		}

		commentID, reason = r.CommentID, r.Reason
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return 0, err
	}

	metrics.ModerationActionsTotal.WithLabelValues(string(ActionRejectReport)).Inc()
	e.appendAudit(ctx, &ModerationAction{
		ModeratorID: moderatorID,
		CommentID:   commentID,
		Action:      ActionRejectReport,
		Reason:      reason,
		CreatedAt:   now,
	})

	log.Info().
		Int64("report_id", reportID).
		Int64("comment_id", commentID).
		Int64("moderator_id", moderatorID).
		Msg("moderation: report rejected")

	return commentID, nil
}

// DeleteComment soft-deletes a comment. With asModerator false the actor
// must be the author and the self-delete flag is set; with asModerator
// true the actor must hold moderation privileges, the admin-delete flag
// is set, and any outstanding pending reports on the comment are
// resolved so they do not dangle against removed content.
func (e *Engine) DeleteComment(ctx context.Context, commentID, actorID int64, asModerator bool) error {
	if asModerator && !e.roles.IsModerator(actorID) {
		return forbiddenf("moderator privileges required")
	}

	ctx, span := tracing.ModerationSpan(ctx, "delete_comment", commentID, actorID)
	defer span.End()

	now := time.Now().UTC()
	var authorID, bookID int64

	err := e.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.GetComment(commentID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFoundf("comment %d not found", commentID)
		}

		if asModerator {
			if c.IsAdminDeleted {
				return conflictf("comment has already been deleted")
			}
			if err := tx.SetCommentAdminDeleted(commentID, actorID, now); err != nil {
				return err
			}
			if _, err := tx.ResolveAllPending(commentID, actorID, now); err != nil {
				return err
			}
			if err := tx.SetPendingReportCount(commentID, 0); err != nil {
				return err
			}
		} else {
			if c.AuthorID != actorID {
				return forbiddenf("only the author can delete this comment")
			}
			if c.IsDeleted {
				return conflictf("comment has already been deleted")
			}
			if err := tx.SetCommentSelfDeleted(commentID, actorID, now); err != nil {
				return err
			}
		}

		if err := tx.RecountBookComments(c.BookID); err != nil {
			return err
		}
		authorID, bookID = c.AuthorID, c.BookID
		return nil
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return err
	}

	if asModerator {
		metrics.ModerationActionsTotal.WithLabelValues(string(ActionDelete)).Inc()
		e.appendAudit(ctx, &ModerationAction{
			ModeratorID: actorID,
			CommentID:   commentID,
			Action:      ActionDelete,
			Reason:      "comment removed by moderator",
			CreatedAt:   now,
		})
		e.notify(ctx, authorID, models.Notification{
			Type:      models.NotificationCommentRemoved,
			ActorID:   actorID,
			Message:   "Your comment was removed by a moderator.",
			Link:      fmt.Sprintf("/books/%d", bookID),
			CreatedAt: now,
		})
	}

	log.Info().
		Int64("comment_id", commentID).
		Int64("actor_id", actorID).
		Bool("as_moderator", asModerator).
		Msg("moderation: comment deleted")

	return nil
}

// UpdateComment edits a comment's content. Only the author may edit, and
// only while the comment is visible.
func (e *Engine) UpdateComment(ctx context.Context, commentID int64, content string, actorID int64) error {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < MinCommentLength || n > MaxCommentLength {
		return validationf("comment must be between %d and %d characters", MinCommentLength, MaxCommentLength)
	}

	now := time.Now().UTC()
	return e.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.GetComment(commentID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFoundf("comment %d not found", commentID)
		}
		if c.AuthorID != actorID {
			return forbiddenf("only the author can edit this comment")
		}
		if !c.Visible() {
			return conflictf("cannot edit a deleted comment")
		}
		return tx.UpdateCommentContent(commentID, content, now)
	})
}

// DeleteBook soft-deletes a book and cascades the self-delete flag to
// all of its non-deleted comments with the same deleted_by/deleted_at
// stamp. The cascade uses the self-delete flag regardless of actor: the
// source of the deletion is "book removed", not "comment moderated".
func (e *Engine) DeleteBook(ctx context.Context, bookID, actorID int64) error {
	ctx, span := tracing.ModerationSpan(ctx, "delete_book", bookID, actorID)
	defer span.End()

	now := time.Now().UTC()
	var cascaded int

	err := e.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if b == nil {
			return notFoundf("book %d not found", bookID)
		}
		if b.OwnerID != actorID && !e.roles.IsAdmin(actorID) {
			return forbiddenf("only the owner or an administrator can delete this book")
		}
		if b.IsDeleted {
			return conflictf("book has already been deleted")
		}
		cascaded, err = tx.MarkBookDeleted(bookID, actorID, now)
		return err
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return err
	}

	log.Info().
		Int64("book_id", bookID).
		Int64("actor_id", actorID).
		Int("comments_cascaded", cascaded).
		Msg("moderation: book deleted")

	return nil
}

// RestoreBook undoes a book-level deletion. Only the comments stamped by
// that book's cascade are restored; comments independently removed by
// moderation stay hidden. There is deliberately no symmetric path to
// un-admin-delete a single comment.
func (e *Engine) RestoreBook(ctx context.Context, bookID, actorID int64) error {
	if !e.roles.IsAdmin(actorID) {
		return forbiddenf("only an administrator can restore a book")
	}

	ctx, span := tracing.ModerationSpan(ctx, "restore_book", bookID, actorID)
	defer span.End()

	var restored int
	err := e.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if b == nil {
			return notFoundf("book %d not found", bookID)
		}
		if !b.IsDeleted {
			return conflictf("book is not deleted")
		}
		restored, err = tx.RestoreBook(bookID)
		return err
	})
	if err != nil {
		tracing.EndWithError(span, err)
		return err
	}

	log.Info().
		Int64("book_id", bookID).
		Int64("actor_id", actorID).
		Int("comments_restored", restored).
		Msg("moderation: book restored")

	return nil
}

// VisibleComments lists the comments a viewer may see on a book.
func (e *Engine) VisibleComments(ctx context.Context, bookID, viewerID int64, page, perPage int) ([]models.Comment, int, error) {
	page, perPage = clampPage(page, perPage)
	return e.store.VisibleComments(ctx, bookID, viewerID, page, perPage)
}

// ListReportedComments lists reports with their comments for the
// moderation dashboard. An empty status lists all reports.
func (e *Engine) ListReportedComments(ctx context.Context, status ReportStatus, page, perPage int) (*PagedReports, error) {
	page, perPage = clampPage(page, perPage)
	return e.store.ListReportedComments(ctx, status, page, perPage)
}

// ListActions returns the newest audit records, up to limit.
func (e *Engine) ListActions(ctx context.Context, limit int) ([]ModerationAction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return e.store.ListActions(ctx, limit)
}

// LogModerationAction validates and appends a standalone audit record
// (warnings, bans, ignores). Unlike the post-commit audit writes, a
// failure here is the primary failure of the operation and is returned.
func (e *Engine) LogModerationAction(ctx context.Context, moderatorID, commentID int64, action ActionType, reason string) error {
	if !action.Valid() {
		return validationf("invalid action type %q", string(action))
	}
	if moderatorID != SystemActorID && !e.roles.IsModerator(moderatorID) {
		return forbiddenf("moderator privileges required")
	}
	a := &ModerationAction{
		ModeratorID: moderatorID,
		CommentID:   commentID,
		Action:      action,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.AppendAction(ctx, a); err != nil {
		return fmt.Errorf("append moderation action: %w", err)
	}
	metrics.ModerationActionsTotal.WithLabelValues(string(action)).Inc()
	return nil
}

// appendAudit writes an audit record after the primary transaction has
// committed. A failure is surfaced to operational logging and counted,
// never propagated: an audit-write failure is a degraded condition, not
// a stop-the-world one.
func (e *Engine) appendAudit(ctx context.Context, a *ModerationAction) {
	if err := e.store.AppendAction(ctx, a); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		log.Error().Err(err).
			Int64("comment_id", a.CommentID).
			Str("action", string(a.Action)).
			Msg("moderation: failed to append audit record")
	}
}

// notify delivers a best-effort notification to one user.
func (e *Engine) notify(ctx context.Context, userID int64, n models.Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, userID, n); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		log.Warn().Err(err).Int64("user_id", userID).Str("type", string(n.Type)).Msg("moderation: failed to deliver notification")
	}
}

// notifyModerators fans a notification out to every configured moderator.
func (e *Engine) notifyModerators(ctx context.Context, n models.Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyModerators(ctx, n); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		log.Warn().Err(err).Str("type", string(n.Type)).Msg("moderation: failed to notify moderators")
	}
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
