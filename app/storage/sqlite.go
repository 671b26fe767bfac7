package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLite struct {
	db   *sqlx.DB
	path string
}

func NewSQLite(ctx context.Context, filePath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", "file:"+filePath+"?_foreign_keys=on&_busy_timeout=5000&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database: %w", err)
	}

	client := &SQLite{
		db:   db,
		path: filePath,
	}

	err = client.migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrating sqlite3 database: %w", err)
	}

	return client, nil
}

func (c *SQLite) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, c.db.DB, "migrations")
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

func (c *SQLite) Ping() error {
	return c.db.Ping()
}

// Path returns the database file location, used by the backup uploader.
func (c *SQLite) Path() string {
	return c.path
}

// CreateSession inserts the session row and its file rows in one transaction.
// This is the last mutation of finalize before the staging buffer is cleared,
// so a failure here leaves the buffer intact for a retry.
func (c *SQLite) CreateSession(ctx context.Context, s e.Session, files []e.File) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO sessions (
			token, owner_id, created_at, protect, retention_seconds, revoked,
			required_channel, header_chat_id, header_msg_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Token, s.OwnerID, s.CreatedAt.UTC(), s.Protect, s.RetentionSeconds,
		s.Revoked, s.RequiredChannel, s.HeaderChatID, s.HeaderMessageID,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	for _, f := range files {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO files (
				session_token, position, kind, vault_chat_id, vault_msg_id,
				raw_content_ref, caption
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.Token, f.Position, f.Kind, f.VaultChatID, f.VaultMessageID,
			f.RawContentRef, f.Caption,
		)
		if err != nil {
			return fmt.Errorf("inserting file at position %d: %w", f.Position, err)
		}
	}

	return tx.Commit()
}

func (c *SQLite) SessionByToken(ctx context.Context, token string) (e.Session, error) {
	var s e.Session
	err := c.db.GetContext(
		ctx,
		&s,
		`SELECT s.*, (SELECT COUNT(*) FROM files f WHERE f.session_token = s.token) AS file_count
			FROM sessions s WHERE s.token = ?`,
		token,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e.Session{}, e.ErrNotFound
		}

		return e.Session{}, err
	}

	return s, nil
}

func (c *SQLite) ListSessions(ctx context.Context, limit int) ([]e.Session, error) {
	var sessions []e.Session
	err := c.db.SelectContext(
		ctx,
		&sessions,
		`SELECT s.*, (SELECT COUNT(*) FROM files f WHERE f.session_token = s.token) AS file_count
			FROM sessions s ORDER BY s.created_at DESC LIMIT ?`,
		limit,
	)
	return sessions, err
}

// RevokeSession flips the one-way revocation flag. It reports whether a
// session with that token existed.
func (c *SQLite) RevokeSession(ctx context.Context, token string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE token = ?`, token)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (c *SQLite) SetSessionHeader(ctx context.Context, token string, chatID int64, messageID int) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE sessions SET header_chat_id = ?, header_msg_id = ? WHERE token = ?`,
		chatID, messageID, token,
	)
	return err
}

// DeleteSession removes a session; its files go with it via cascade.
func (c *SQLite) DeleteSession(ctx context.Context, token string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (c *SQLite) FilesBySession(ctx context.Context, token string) ([]e.File, error) {
	var files []e.File
	err := c.db.SelectContext(
		ctx,
		&files,
		`SELECT * FROM files WHERE session_token = ? ORDER BY position`,
		token,
	)
	return files, err
}

func (c *SQLite) UpsertUser(ctx context.Context, u e.User) error {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO users (id, name, username, first_seen, last_active)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE
			    SET name = excluded.name, username = excluded.username, last_active = excluded.last_active`,
		u.ID, u.Name, u.Username, now, now,
	)
	return err
}

func (c *SQLite) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := c.db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY id`)
	return ids, err
}

func (c *SQLite) Stats(ctx context.Context) (e.Stats, error) {
	var stats e.Stats
	activeSince := time.Now().UTC().Add(-48 * time.Hour)
	err := c.db.GetContext(
		ctx,
		&stats,
		`SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE last_active >= ?) AS active_users,
			(SELECT COUNT(*) FROM sessions) AS total_sessions,
			(SELECT COUNT(*) FROM files) AS total_files`,
		activeSince,
	)
	return stats, err
}

type actionRow struct {
	ID           string         `db:"id"`
	SessionToken string         `db:"session_token"`
	ChatID       int64          `db:"chat_id"`
	MessageIDs   string         `db:"message_ids"`
	DueAt        time.Time      `db:"due_at"`
	Status       e.ActionStatus `db:"status"`
}

func (r actionRow) toEntity() (e.DeferredAction, error) {
	var ids []int
	if err := json.Unmarshal([]byte(r.MessageIDs), &ids); err != nil {
		return e.DeferredAction{}, fmt.Errorf("decoding message ids of action %s: %w", r.ID, err)
	}

	return e.DeferredAction{
		ID:           r.ID,
		SessionToken: r.SessionToken,
		ChatID:       r.ChatID,
		MessageIDs:   ids,
		DueAt:        r.DueAt,
		Status:       r.Status,
	}, nil
}

func (c *SQLite) CreateAction(ctx context.Context, a e.DeferredAction) error {
	ids, err := json.Marshal(a.MessageIDs)
	if err != nil {
		return fmt.Errorf("encoding message ids: %w", err)
	}

	_, err = c.db.ExecContext(
		ctx,
		`INSERT INTO deferred_actions (id, session_token, chat_id, message_ids, due_at, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionToken, a.ChatID, string(ids), a.DueAt.UTC(), a.Status,
	)
	return err
}

func (c *SQLite) ActionByID(ctx context.Context, id string) (e.DeferredAction, error) {
	var row actionRow
	err := c.db.GetContext(ctx, &row, `SELECT * FROM deferred_actions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e.DeferredAction{}, e.ErrNotFound
		}

		return e.DeferredAction{}, err
	}

	return row.toEntity()
}

func (c *SQLite) MarkActionDone(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `UPDATE deferred_actions SET status = 'done' WHERE id = ?`, id)
	return err
}

func (c *SQLite) ScheduledActions(ctx context.Context) ([]e.DeferredAction, error) {
	var rows []actionRow
	err := c.db.SelectContext(
		ctx,
		&rows,
		`SELECT * FROM deferred_actions WHERE status = 'scheduled' ORDER BY due_at`,
	)
	if err != nil {
		return nil, err
	}

	actions := make([]e.DeferredAction, 0, len(rows))
	for _, row := range rows {
		a, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, nil
}

// GetSetting returns defaultValue when the key has never been set.
func (c *SQLite) GetSetting(ctx context.Context, key, defaultValue string) (string, error) {
	var value string
	err := c.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultValue, nil
		}

		return "", err
	}

	return value, nil
}

func (c *SQLite) SetSetting(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (c *SQLite) AddChannel(ctx context.Context, alias, link string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO channels (alias, link) VALUES (?, ?)
			ON CONFLICT(alias) DO UPDATE SET link = excluded.link`,
		alias, link,
	)
	return err
}

func (c *SQLite) Channels(ctx context.Context) ([]e.Channel, error) {
	var channels []e.Channel
	err := c.db.SelectContext(ctx, &channels, `SELECT * FROM channels ORDER BY alias`)
	return channels, err
}
