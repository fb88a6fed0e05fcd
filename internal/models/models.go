// Package models holds the shared domain types for the ReadSphere
// community: books, the comments attached to them, and in-app
// notifications. Moderation-specific types (reports, audit entries)
// live in internal/moderation.
package models

import "time"

// CommentStatus is the derived lifecycle state of a comment. It is not
// stored directly; the persistence layer keeps the two legacy soft-delete
// flags and translates at the boundary.
type CommentStatus string

const (
	CommentActive           CommentStatus = "active"
	CommentSelfDeleted      CommentStatus = "self_deleted"
	CommentModeratorDeleted CommentStatus = "moderator_deleted"
)

// Comment is a user comment on a book.
type Comment struct {
	ID       int64  `json:"id"`
	BookID   int64  `json:"book_id"`
	AuthorID int64  `json:"author_id"`
	Content  string `json:"content"`
	IsEdited bool   `json:"is_edited"`

	// IsDeleted is the author-initiated soft delete (also set by book
	// cascade deletes). IsAdminDeleted is the moderator-initiated soft
	// delete. The two are tracked independently.
	IsDeleted      bool `json:"is_deleted"`
	IsAdminDeleted bool `json:"is_admin_deleted"`

	// PendingReportCount is a denormalized count of reports currently in
	// pending status against this comment. It is recomputed inside every
	// report-status transition and must never be trusted across
	// transaction boundaries.
	PendingReportCount int `json:"pending_report_count"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *int64     `json:"deleted_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Status derives the tagged lifecycle state from the stored flags.
// Moderator deletion wins when both flags are set.
func (c *Comment) Status() CommentStatus {
	switch {
	case c.IsAdminDeleted:
		return CommentModeratorDeleted
	case c.IsDeleted:
		return CommentSelfDeleted
	default:
		return CommentActive
	}
}

// Visible reports whether the comment appears in normal listings.
// Either soft-delete flag alone hides it.
func (c *Comment) Visible() bool {
	return !c.IsDeleted && !c.IsAdminDeleted
}

// Book is a posted book. It owns its comments; deleting or restoring a
// book cascades to them.
type Book struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Title   string `json:"title"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *int64     `json:"deleted_by,omitempty"`

	// CommentCount is a denormalized count of visible comments,
	// recomputed whenever a comment on the book changes visibility.
	CommentCount int `json:"comment_count"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationType identifies the kind of in-app notification.
type NotificationType string

const (
	// NotificationCommentRemoved tells an author their comment was
	// removed by a moderator or by the report threshold.
	NotificationCommentRemoved NotificationType = "comment_removed"

	// NotificationReportResolved tells a reporter their report led to a
	// removal.
	NotificationReportResolved NotificationType = "report_resolved"

	// NotificationModerationAlert asks moderators to look at content
	// that crossed the automatic removal threshold.
	NotificationModerationAlert NotificationType = "moderation_alert"
)

// Notification is a best-effort in-app message delivered to a user's
// inbox.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	ActorID   int64            `json:"actor_id"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}
