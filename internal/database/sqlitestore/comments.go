package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/models"
)

const commentColumns = `id, book_id, author_id, content, is_edited, is_deleted,
	is_admin_deleted, pending_report_count, deleted_at, deleted_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	var isEdited, isDeleted, isAdminDeleted int
	var deletedAt sql.NullString
	var deletedBy sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.BookID, &c.AuthorID, &c.Content, &isEdited, &isDeleted,
		&isAdminDeleted, &c.PendingReportCount, &deletedAt, &deletedBy, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.IsEdited = isEdited == 1
	c.IsDeleted = isDeleted == 1
	c.IsAdminDeleted = isAdminDeleted == 1
	c.DeletedAt = nullTime(deletedAt)
	c.DeletedBy = nullInt(deletedBy)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// CreateComment inserts a new visible comment and fills in its id.
func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (book_id, author_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.BookID, c.AuthorID, c.Content, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	c.ID, _ = res.LastInsertId()

	_, err = s.db.ExecContext(ctx, `
		UPDATE books SET comment_count = (
			SELECT COUNT(*) FROM comments
			WHERE book_id = ? AND is_deleted = 0 AND is_admin_deleted = 0
		) WHERE id = ?
	`, c.BookID, c.BookID)
	if err != nil {
		return fmt.Errorf("update book comment count: %w", err)
	}
	return nil
}

// GetComment returns the comment by id, or nil if it does not exist.
func (s *Store) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	return scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
}

// VisibleComments lists a book's comments for the given viewer, oldest
// first. Self-deleted comments are excluded for everyone. Admin-deleted
// comments are excluded for everyone except their own author, who gets a
// placeholder instead of the content.
func (s *Store) VisibleComments(ctx context.Context, bookID, viewerID int64, page, perPage int) ([]models.Comment, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments
		WHERE book_id = ? AND is_deleted = 0
		  AND (is_admin_deleted = 0 OR author_id = ?)
	`, bookID, viewerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count visible comments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE book_id = ? AND is_deleted = 0
		  AND (is_admin_deleted = 0 OR author_id = ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, bookID, viewerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list visible comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		if c.IsAdminDeleted {
			// The author sees that their comment exists but was removed,
			// not what it said.
			c.Content = "[removed by moderator]"
		}
		comments = append(comments, *c)
	}
	return comments, total, rows.Err()
}

// ========== Transactional comment operations ==========

func (t *Tx) GetComment(id int64) (*models.Comment, error) {
	return scanComment(t.tx.QueryRow(
		`SELECT ` + commentColumns + ` FROM comments WHERE id = ?`, id))
}

func (t *Tx) SetCommentSelfDeleted(commentID, by int64, at time.Time) error {
	_, err := t.tx.Exec(`
		UPDATE comments SET is_deleted = 1, deleted_by = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?
	`, by, fmtTime(at), fmtTime(at), commentID)
	if err != nil {
		return fmt.Errorf("mark comment self-deleted: %w", err)
	}
	return nil
}

func (t *Tx) SetCommentAdminDeleted(commentID, by int64, at time.Time) error {
	_, err := t.tx.Exec(`
		UPDATE comments SET is_admin_deleted = 1, deleted_by = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?
	`, by, fmtTime(at), fmtTime(at), commentID)
	if err != nil {
		return fmt.Errorf("mark comment admin-deleted: %w", err)
	}
	return nil
}

func (t *Tx) UpdateCommentContent(commentID int64, content string, at time.Time) error {
	_, err := t.tx.Exec(`
		UPDATE comments SET content = ?, is_edited = 1, updated_at = ? WHERE id = ?
	`, content, fmtTime(at), commentID)
	if err != nil {
		return fmt.Errorf("update comment content: %w", err)
	}
	return nil
}

func (t *Tx) SetPendingReportCount(commentID int64, n int) error {
	_, err := t.tx.Exec(`UPDATE comments SET pending_report_count = ? WHERE id = ?`, n, commentID)
	if err != nil {
		return fmt.Errorf("set pending report count: %w", err)
	}
	return nil
}
