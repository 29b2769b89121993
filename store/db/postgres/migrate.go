package postgres

import (
	"context"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id SERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_session (
	id TEXT PRIMARY KEY,
	creator_id INTEGER NOT NULL REFERENCES "user" (id),
	title TEXT NOT NULL DEFAULT 'New Chat',
	title_source TEXT NOT NULL DEFAULT 'default',
	week_start BIGINT NOT NULL,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_session_creator_updated ON chat_session (creator_id, updated_ts DESC);

CREATE TABLE IF NOT EXISTS message (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL REFERENCES chat_session (id) ON DELETE CASCADE,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_message_session_created ON message (session_id, created_ts);
`

// Migrate applies the schema. Statements are idempotent so this is safe to
// run on every startup.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
