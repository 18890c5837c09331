// Package store is the local row store for contact submissions and admin
// accounts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"folio/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps submissions, users and sessions in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contact_submissions (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	submitted_at TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'read')),
	read_at      TEXT
);

CREATE INDEX IF NOT EXISTS contact_submissions_submitted_at
	ON contact_submissions (submitted_at DESC);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	revoked_at TEXT
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Times are stored as fixed-width UTC text so lexical order is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

const submissionColumns = "id, name, email, subject, message, submitted_at, status, read_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (model.Submission, error) {
	var (
		sub         model.Submission
		submittedAt string
		status      string
		readAt      sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Subject, &sub.Message, &submittedAt, &status, &readAt); err != nil {
		return sub, err
	}
	t, err := parseTime(submittedAt)
	if err != nil {
		return sub, fmt.Errorf("submission %s: submitted_at: %w", sub.ID, err)
	}
	sub.SubmittedAt = t
	sub.Status = model.Status(status)
	if readAt.Valid {
		rt, err := parseTime(readAt.String)
		if err != nil {
			return sub, fmt.Errorf("submission %s: read_at: %w", sub.ID, err)
		}
		sub.ReadAt = &rt
	}
	return sub, nil
}

// ListSubmissions returns every submission, newest first.
func (s *SQLiteStore) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM contact_submissions ORDER BY submitted_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM contact_submissions WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("submission %s: %w", id, model.ErrNotFound)
	}
	return sub, err
}

// InsertSubmission stores a new submission with status new.
func (s *SQLiteStore) InsertSubmission(ctx context.Context, in model.NewSubmission) (model.Submission, error) {
	sub := model.Submission{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Email:       in.Email,
		Subject:     in.Subject,
		Message:     in.Message,
		SubmittedAt: s.now().UTC(),
		Status:      model.StatusNew,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_submissions (id, name, email, subject, message, submitted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.Name, sub.Email, sub.Subject, sub.Message, formatTime(sub.SubmittedAt), string(sub.Status))
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

// UpsertSubmissions writes complete records, replacing any with the same id.
func (s *SQLiteStore) UpsertSubmissions(ctx context.Context, subs []model.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contact_submissions (id, name, email, subject, message, submitted_at, status, read_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			email        = excluded.email,
			subject      = excluded.subject,
			message      = excluded.message,
			submitted_at = excluded.submitted_at,
			status       = excluded.status,
			read_at      = excluded.read_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sub := range subs {
		if !sub.Status.Valid() {
			return fmt.Errorf("submission %s: invalid status %q", sub.ID, sub.Status)
		}
		var readAt any
		if sub.ReadAt != nil {
			readAt = formatTime(*sub.ReadAt)
		}
		if _, err := stmt.ExecContext(ctx, sub.ID, sub.Name, sub.Email, sub.Subject, sub.Message,
			formatTime(sub.SubmittedAt), string(sub.Status), readAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateStatus marks a submission read (stamping read_at) or new (clearing it).
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	var readAt any
	if status == model.StatusRead {
		readAt = formatTime(s.now())
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE contact_submissions SET status = ?, read_at = ? WHERE id = ?", string(status), readAt, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return expectRow(res, "submission "+id)
}

func (s *SQLiteStore) DeleteSubmission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM contact_submissions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return expectRow(res, "submission "+id)
}

// Stats tallies submissions; Today uses the local calendar day.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, submitted_at FROM contact_submissions")
	if err != nil {
		return model.Stats{}, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var status, submittedAt string
		if err := rows.Scan(&status, &submittedAt); err != nil {
			return model.Stats{}, err
		}
		t, err := parseTime(submittedAt)
		if err != nil {
			return model.Stats{}, err
		}
		subs = append(subs, model.Submission{Status: model.Status(status), SubmittedAt: t})
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, err
	}
	return model.TallyStats(subs, s.now()), nil
}

// CreateUser stores email with a bcrypt hash of password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, password string) (model.User, error) {
	if email == "" || password == "" {
		return model.User{}, errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{ID: uuid.NewString(), Email: email, CreatedAt: s.now().UTC()}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, string(hash), formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return model.User{}, fmt.Errorf("User already registered: %s", email)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) UserByID(ctx context.Context, id string) (model.User, error) {
	u, _, err := s.user(ctx, "id", id)
	return u, err
}

// Authenticate returns the user when password matches, else ErrInvalidCredentials.
func (s *SQLiteStore) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, hash, err := s.user(ctx, "email", email)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return model.User{}, model.ErrInvalidCredentials
	}
	return u, nil
}

func (s *SQLiteStore) user(ctx context.Context, column, value string) (model.User, string, error) {
	var (
		u         model.User
		hash      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE "+column+" = ?", value).
		Scan(&u.ID, &u.Email, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, "", fmt.Errorf("user: %w", model.ErrNotFound)
	}
	if err != nil {
		return u, "", err
	}
	u.CreatedAt, err = parseTime(createdAt)
	return u, hash, err
}

// SessionRecord is the server-side half of a signed session token.
type SessionRecord struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (SessionRecord, error) {
	now := s.now().UTC()
	rec := SessionRecord{ID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.UserID, formatTime(rec.CreatedAt), formatTime(rec.ExpiresAt))
	if err != nil {
		return SessionRecord{}, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) SessionByID(ctx context.Context, id string) (SessionRecord, error) {
	var (
		rec                  SessionRecord
		createdAt, expiresAt string
		revokedAt            sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?", id).
		Scan(&rec.ID, &rec.UserID, &createdAt, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("session: %w", model.ErrNotFound)
	}
	if err != nil {
		return rec, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return rec, err
	}
	if rec.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return rec, err
	}
	rec.Revoked = revokedAt.Valid
	return rec, nil
}

// RevokeSession is idempotent; revoking an unknown session is not an error.
func (s *SQLiteStore) RevokeSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", formatTime(s.now()), id)
	return err
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return nil
}
