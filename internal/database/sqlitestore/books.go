package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/models"
)

const bookColumns = `id, owner_id, title, is_deleted, deleted_at, deleted_by, comment_count, created_at`

func scanBook(row rowScanner) (*models.Book, error) {
	var b models.Book
	var isDeleted int
	var deletedAt sql.NullString
	var deletedBy sql.NullInt64
	var createdAt string

	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &isDeleted, &deletedAt, &deletedBy, &b.CommentCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.IsDeleted = isDeleted == 1
	b.DeletedAt = nullTime(deletedAt)
	b.DeletedBy = nullInt(deletedBy)
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

// CreateBook inserts a new book and fills in its id.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (owner_id, title, created_at) VALUES (?, ?, ?)
	`, b.OwnerID, b.Title, fmtTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

// GetBook returns the book by id, or nil if it does not exist.
func (s *Store) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return scanBook(s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
}

// ========== Transactional book operations ==========

func (t *Tx) GetBook(id int64) (*models.Book, error) {
	return scanBook(t.tx.QueryRow(
		`SELECT ` + bookColumns + ` FROM books WHERE id = ?`, id))
}

// MarkBookDeleted soft-deletes the book and cascades is_deleted to every
// comment that does not already carry the flag, stamping the comments
// with the same deleted_by/deleted_at as the book so the cascade can be
// undone precisely.
func (t *Tx) MarkBookDeleted(bookID, by int64, at time.Time) (int, error) {
	stamp := fmtTime(at)
	_, err := t.tx.Exec(`
		UPDATE books SET is_deleted = 1, deleted_by = ?, deleted_at = ? WHERE id = ?
	`, by, stamp, bookID)
	if err != nil {
		return 0, fmt.Errorf("mark book deleted: %w", err)
	}

	res, err := t.tx.Exec(`
		UPDATE comments SET is_deleted = 1, deleted_by = ?, deleted_at = ?, updated_at = ?
		WHERE book_id = ? AND is_deleted = 0
	`, by, stamp, stamp, bookID)
	if err != nil {
		return 0, fmt.Errorf("cascade book delete: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := t.RecountBookComments(bookID); err != nil {
		return 0, err
	}
	return int(n), nil
}

// RestoreBook clears the book's soft delete and restores exactly the
// comments stamped by that book's cascade. Comments that were deleted
// independently (different stamp) or removed by moderation keep their
// flags: restoring a book undoes book-level deletion, not moderation
// decisions.
func (t *Tx) RestoreBook(bookID int64) (int, error) {
	b, err := t.GetBook(bookID)
	if err != nil {
		return 0, err
	}
	if b == nil || b.DeletedAt == nil || b.DeletedBy == nil {
		return 0, fmt.Errorf("book %d has no deletion stamp to restore from", bookID)
	}
	stamp := fmtTime(*b.DeletedAt)

	res, err := t.tx.Exec(`
		UPDATE comments SET is_deleted = 0, deleted_by = NULL, deleted_at = NULL
		WHERE book_id = ? AND is_deleted = 1 AND deleted_by = ? AND deleted_at = ?
	`, bookID, *b.DeletedBy, stamp)
	if err != nil {
		return 0, fmt.Errorf("cascade book restore: %w", err)
	}
	n, _ := res.RowsAffected()

	_, err = t.tx.Exec(`
		UPDATE books SET is_deleted = 0, deleted_by = NULL, deleted_at = NULL WHERE id = ?
	`, bookID)
	if err != nil {
		return 0, fmt.Errorf("restore book: %w", err)
	}

	if err := t.RecountBookComments(bookID); err != nil {
		return 0, err
	}
	return int(n), nil
}

// RecountBookComments refreshes the denormalized visible-comment counter
// on the book.
func (t *Tx) RecountBookComments(bookID int64) error {
	_, err := t.tx.Exec(`
		UPDATE books SET comment_count = (
			SELECT COUNT(*) FROM comments
			WHERE book_id = ? AND is_deleted = 0 AND is_admin_deleted = 0
		) WHERE id = ?
	`, bookID, bookID)
	if err != nil {
		return fmt.Errorf("recount book comments: %w", err)
	}
	return nil
}
