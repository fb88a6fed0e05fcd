package moderation

import (
	"context"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/models"
)

// Store defines the persistence interface the engine drives.
// Implementations must be safe for concurrent use.
type Store interface {
	// WithTx runs fn inside a single atomic write transaction. Writers
	// are serialized, so a count-and-compare inside fn observes a
	// consistent snapshot with respect to concurrent mutations. A
	// commit or lock failure is returned classified as Transient.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)

	// VisibleComments lists comments for a book, excluding deleted ones
	// except that a comment's own author still sees a moderator-removed
	// placeholder for their admin-deleted comments.
	VisibleComments(ctx context.Context, bookID, viewerID int64, page, perPage int) ([]models.Comment, int, error)

	// ListReportedComments lists reports joined with their comments,
	// newest first, optionally filtered by status.
	ListReportedComments(ctx context.Context, status ReportStatus, page, perPage int) (*PagedReports, error)

	// RecountPendingReports recomputes the denormalized pending counter
	// for a comment from the authoritative report rows and returns the
	// fresh value. Reconciliation path for aborted transactions.
	RecountPendingReports(ctx context.Context, commentID int64) (int, error)

	// AppendAction appends an immutable audit record. Never rolled back
	// by the caller; a failure is a degraded condition, not a stop.
	AppendAction(ctx context.Context, action *ModerationAction) error

	// ListActions returns the newest audit records, up to limit.
	ListActions(ctx context.Context, limit int) ([]ModerationAction, error)
}

// Tx is the transactional surface used by the engine's orchestration.
// All reads see the transaction's snapshot; all writes commit or roll
// back together.
type Tx interface {
	GetComment(id int64) (*models.Comment, error)
	GetBook(id int64) (*models.Book, error)
	GetReport(id int64) (*Report, error)

	// FindReport returns the report for (commentID, reporterID), or nil.
	FindReport(commentID, reporterID int64) (*Report, error)

	// InsertReport persists a new pending report and fills in its id.
	// The unique index on (comment_id, reporter_id) backstops the
	// duplicate pre-check under concurrency.
	InsertReport(r *Report) error

	// CountPendingReports returns the authoritative number of pending
	// reports for the comment within this transaction.
	CountPendingReports(commentID int64) (int, error)

	// SetPendingReportCount writes the denormalized counter.
	SetPendingReportCount(commentID int64, n int) error

	// MarkReportResolved transitions a single report to a terminal
	// status and stamps resolved_by/resolved_at.
	MarkReportResolved(reportID int64, status ReportStatus, by int64, at time.Time) error

	// ResolveAllPending transitions every pending report on the comment
	// to resolved, attributed to by. Returns the number transitioned.
	ResolveAllPending(commentID, by int64, at time.Time) (int, error)

	// SetCommentSelfDeleted and SetCommentAdminDeleted flip exactly one
	// soft-delete flag each and stamp deleted_by/deleted_at.
	SetCommentSelfDeleted(commentID, by int64, at time.Time) error
	SetCommentAdminDeleted(commentID, by int64, at time.Time) error

	// UpdateCommentContent replaces the content and marks is_edited.
	UpdateCommentContent(commentID int64, content string, at time.Time) error

	// RecountBookComments refreshes the owning book's visible-comment
	// counter.
	RecountBookComments(bookID int64) error

	// MarkBookDeleted soft-deletes the book and cascades is_deleted to
	// its currently non-deleted comments with the same stamp. Returns
	// the number of comments cascaded.
	MarkBookDeleted(bookID, by int64, at time.Time) (int, error)

	// RestoreBook clears the book's soft delete and restores exactly
	// the comments stamped by that cascade (matching deleted_by and
	// deleted_at); independently admin-deleted comments stay hidden.
	// Returns the number of comments restored.
	RestoreBook(bookID int64) (int, error)
}

// Notifier delivers best-effort in-app notifications. Failures never
// unwind a committed moderation action.
type Notifier interface {
	Notify(ctx context.Context, userID int64, n models.Notification) error
	NotifyModerators(ctx context.Context, n models.Notification) error
}
