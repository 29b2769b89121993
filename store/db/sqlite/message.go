package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mindwell-app/mindwell/store"
)

// CreateMessage inserts at the tail of the session log and bumps the owning
// session's updated_ts in the same transaction.
func (d *DB) CreateMessage(ctx context.Context, create *store.CreateMessage) (*store.Message, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	message := &store.Message{
		UID:       create.UID,
		SessionID: create.SessionID,
		Role:      create.Role,
		Content:   create.Content,
		CreatedTs: create.CreatedTs,
	}
	stmt := `
		INSERT INTO message (uid, session_id, role, content, created_ts)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, stmt,
		create.UID,
		create.SessionID,
		create.Role,
		create.Content,
		create.CreatedTs,
	).Scan(&message.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}

	// Message timestamps are milliseconds, session timestamps seconds.
	if _, err := tx.ExecContext(ctx,
		"UPDATE chat_session SET updated_ts = ? WHERE id = ?",
		create.CreatedTs/1000, create.SessionID,
	); err != nil {
		return nil, errors.Wrap(err, "failed to bump session updated_ts")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return message, nil
}

// ListMessages returns the most-recent-first tail when a limit is set, and
// the full chronological log otherwise. Ties on created_ts break by
// insertion id.
func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}

	query := `
		SELECT id, uid, session_id, role, content, created_ts
		FROM message
		WHERE ` + strings.Join(where, " AND ")
	if find.Limit != nil {
		query += " ORDER BY created_ts DESC, id DESC LIMIT ?"
		args = append(args, *find.Limit)
	} else {
		query += " ORDER BY created_ts ASC, id ASC"
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		message := &store.Message{}
		if err := rows.Scan(
			&message.ID,
			&message.UID,
			&message.SessionID,
			&message.Role,
			&message.Content,
			&message.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		list = append(list, message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return list, nil
}

func (d *DB) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM message WHERE session_id = ?", sessionID,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count messages")
	}
	return count, nil
}
