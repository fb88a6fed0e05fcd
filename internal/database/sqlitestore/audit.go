package sqlitestore

import (
	"context"
	"fmt"

	"github.com/Amine830/ReadSphere-sub000/internal/moderation"
)

// AppendAction writes one audit entry. Entries are append-only; nothing
// in this package updates or deletes rows in moderation_actions.
func (s *Store) AppendAction(ctx context.Context, action *moderation.ModerationAction) error {
	if !action.Action.Valid() {
		return fmt.Errorf("invalid audit action type %q", action.Action)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_actions (moderator_id, comment_id, action_type, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, action.ModeratorID, action.CommentID, string(action.Action), action.Reason, fmtTime(action.CreatedAt))
	if err != nil {
		return fmt.Errorf("append moderation action: %w", err)
	}
	action.ID, _ = res.LastInsertId()
	return nil
}

// ListActions returns the most recent audit entries, newest first.
func (s *Store) ListActions(ctx context.Context, limit int) ([]moderation.ModerationAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, moderator_id, comment_id, action_type, reason, created_at
		FROM moderation_actions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list moderation actions: %w", err)
	}
	defer rows.Close()

	var actions []moderation.ModerationAction
	for rows.Next() {
		var a moderation.ModerationAction
		var actionType, createdAt string
		if err := rows.Scan(&a.ID, &a.ModeratorID, &a.CommentID, &actionType, &a.Reason, &createdAt); err != nil {
			return nil, err
		}
		a.Action = moderation.ActionType(actionType)
		a.CreatedAt = parseTime(createdAt)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
