package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/moderation"
)

const reportColumns = `id, comment_id, reporter_id, reason, status, created_at,
	resolved_at, resolved_by, resolution_notes`

func scanReport(row rowScanner) (*moderation.Report, error) {
	var r moderation.Report
	var status, createdAt string
	var resolvedAt sql.NullString
	var resolvedBy sql.NullInt64

	err := row.Scan(&r.ID, &r.CommentID, &r.ReporterID, &r.Reason, &status, &createdAt,
		&resolvedAt, &resolvedBy, &r.ResolutionNotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Status = moderation.ReportStatus(status)
	r.CreatedAt = parseTime(createdAt)
	r.ResolvedAt = nullTime(resolvedAt)
	r.ResolvedBy = nullInt(resolvedBy)
	return &r, nil
}

// GetReport returns the report by id, or nil if it does not exist.
func (s *Store) GetReport(ctx context.Context, id int64) (*moderation.Report, error) {
	return scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
}

// RecountPendingReports recomputes the denormalized pending counter on a
// comment from the authoritative report rows and returns the fresh
// value. This is the reconciliation path for the cached counter.
func (s *Store) RecountPendingReports(ctx context.Context, commentID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reports WHERE comment_id = ? AND status = 'pending'
	`, commentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("recount pending reports: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE comments SET pending_report_count = ? WHERE id = ?
	`, n, commentID)
	if err != nil {
		return 0, fmt.Errorf("write pending report count: %w", err)
	}
	return n, nil
}

// CountPendingReports returns the total number of pending reports across
// all comments, for the dashboard gauge.
func (s *Store) CountPendingReports(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE status = 'pending'`).Scan(&n)
	return n, err
}

// ListReportedComments lists reports joined with their comments, newest
// report first. An empty status lists reports in every status.
func (s *Store) ListReportedComments(ctx context.Context, status moderation.ReportStatus, page, perPage int) (*moderation.PagedReports, error) {
	where := ``
	args := []any{}
	if status != "" {
		where = `WHERE r.status = ?`
		args = append(args, string(status))
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports r `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.comment_id, r.reporter_id, r.reason, r.status, r.created_at,
		       r.resolved_at, r.resolved_by, r.resolution_notes,
		       c.id, c.book_id, c.author_id, c.content, c.is_deleted, c.is_admin_deleted
		FROM reports r
		JOIN comments c ON c.id = r.comment_id
		`+where+`
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	result := &moderation.PagedReports{Total: total, Page: page, PerPage: perPage}
	for rows.Next() {
		var item moderation.ReportedComment
		var rstatus, createdAt string
		var resolvedAt sql.NullString
		var resolvedBy sql.NullInt64
		var isDeleted, isAdminDeleted int

		err := rows.Scan(&item.Report.ID, &item.Report.CommentID, &item.Report.ReporterID,
			&item.Report.Reason, &rstatus, &createdAt, &resolvedAt, &resolvedBy,
			&item.Report.ResolutionNotes,
			&item.Comment.ID, &item.Comment.BookID, &item.Comment.AuthorID,
			&item.Comment.Content, &isDeleted, &isAdminDeleted)
		if err != nil {
			return nil, err
		}

		item.Report.Status = moderation.ReportStatus(rstatus)
		item.Report.CreatedAt = parseTime(createdAt)
		item.Report.ResolvedAt = nullTime(resolvedAt)
		item.Report.ResolvedBy = nullInt(resolvedBy)
		item.Comment.IsDeleted = isDeleted == 1
		item.Comment.IsAdminDeleted = isAdminDeleted == 1
		result.Items = append(result.Items, item)
	}
	return result, rows.Err()
}

// ========== Transactional report operations ==========

func (t *Tx) GetReport(id int64) (*moderation.Report, error) {
	return scanReport(t.tx.QueryRow(
		`SELECT ` + reportColumns + ` FROM reports WHERE id = ?`, id))
}

func (t *Tx) FindReport(commentID, reporterID int64) (*moderation.Report, error) {
	return scanReport(t.tx.QueryRow(
		`SELECT `+reportColumns+` FROM reports WHERE comment_id = ? AND reporter_id = ?`,
		commentID, reporterID))
}

// InsertReport persists a new pending report. A unique-index violation
// means a concurrent submission won the race; it is reported as such so
// the engine can surface the duplicate to the caller.
func (t *Tx) InsertReport(r *moderation.Report) error {
	res, err := t.tx.Exec(`
		INSERT INTO reports (comment_id, reporter_id, reason, status, created_at, resolution_notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.CommentID, r.ReporterID, r.Reason, string(r.Status), fmtTime(r.CreatedAt), r.ResolutionNotes)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report already exists for comment %d by reporter %d: %w", r.CommentID, r.ReporterID, err)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (t *Tx) CountPendingReports(commentID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(`
		SELECT COUNT(*) FROM reports WHERE comment_id = ? AND status = 'pending'
	`, commentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending reports: %w", err)
	}
	return n, nil
}

func (t *Tx) MarkReportResolved(reportID int64, status moderation.ReportStatus, by int64, at time.Time) error {
	res, err := t.tx.Exec(`
		UPDATE reports SET status = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), by, fmtTime(at), reportID)
	if err != nil {
		return fmt.Errorf("mark report %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("report %d is not pending", reportID)
	}
	return nil
}

// ResolveAllPending transitions every pending report on the comment to
// resolved in bulk, attributed to by (the system actor on the automatic
// path).
func (t *Tx) ResolveAllPending(commentID, by int64, at time.Time) (int, error) {
	res, err := t.tx.Exec(`
		UPDATE reports SET status = 'resolved', resolved_by = ?, resolved_at = ?
		WHERE comment_id = ? AND status = 'pending'
	`, by, fmtTime(at), commentID)
	if err != nil {
		return 0, fmt.Errorf("bulk resolve pending reports: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
