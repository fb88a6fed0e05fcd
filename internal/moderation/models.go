package moderation

import "time"

// SystemActorID is the reserved identity used for automatic moderation
// actions (threshold removals, bulk report resolution). It is never a
// valid human moderator id.
const SystemActorID int64 = 0

// ReportStatus represents the status of a comment report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusResolved ReportStatus = "resolved"
	ReportStatusRejected ReportStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusResolved || s == ReportStatusRejected
}

// Report is a user's flag on a comment. At most one report exists per
// (comment, reporter) pair.
type Report struct {
	ID              int64        `json:"id"`
	CommentID       int64        `json:"comment_id"`
	ReporterID      int64        `json:"reporter_id"`
	Reason          string       `json:"reason"`
	Status          ReportStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy      *int64       `json:"resolved_by,omitempty"`
	ResolutionNotes string       `json:"resolution_notes,omitempty"`
}

// ActionType is a closed enumeration of auditable moderation actions.
type ActionType string

const (
	ActionDelete        ActionType = "delete"
	ActionIgnore        ActionType = "ignore"
	ActionWarnUser      ActionType = "warn_user"
	ActionBanUser       ActionType = "ban_user"
	ActionResolveReport ActionType = "resolve_report"
	ActionRejectReport  ActionType = "reject_report"
	ActionReport        ActionType = "report"
)

// Valid reports whether t is one of the enumerated action types.
// Invalid types are rejected at the boundary, before any write.
func (t ActionType) Valid() bool {
	switch t {
	case ActionDelete, ActionIgnore, ActionWarnUser, ActionBanUser,
		ActionResolveReport, ActionRejectReport, ActionReport:
		return true
	}
	return false
}

// ModerationAction is an append-only audit record. The core never
// mutates or deletes one.
type ModerationAction struct {
	ID          int64      `json:"id"`
	ModeratorID int64      `json:"moderator_id"`
	CommentID   int64      `json:"comment_id"`
	Action      ActionType `json:"action_type"`
	Reason      string     `json:"reason"`
	CreatedAt   time.Time  `json:"created_at"`
}

// System reports whether the action was taken automatically rather than
// by a human moderator.
func (a *ModerationAction) System() bool { return a.ModeratorID == SystemActorID }

// ReportReceipt is returned by report submission so callers can branch
// on whether the automatic removal threshold fired.
type ReportReceipt struct {
	Report               *Report `json:"report"`
	TriggeredAutoRemoval bool    `json:"triggered_auto_removal"`
}

// ReportedCommentSummary is the slice of comment state a moderator needs
// alongside a report in listings.
type ReportedCommentSummary struct {
	ID             int64  `json:"id"`
	BookID         int64  `json:"book_id"`
	AuthorID       int64  `json:"author_id"`
	Content        string `json:"content"`
	IsDeleted      bool   `json:"is_deleted"`
	IsAdminDeleted bool   `json:"is_admin_deleted"`
}

// ReportedComment pairs a report with its target comment.
type ReportedComment struct {
	Report  Report                 `json:"report"`
	Comment ReportedCommentSummary `json:"comment"`
}

// PagedReports is a page of reported-comment listings.
type PagedReports struct {
	Items   []ReportedComment `json:"items"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}
