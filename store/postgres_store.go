package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/antihype/morpheus-gateway/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "morpheus"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "morpheus"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, email, password_hash, name, birth_date, telegram_id,
subscription_status, remaining_interpretations, last_free_interpretation_at,
created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.BirthDate,
		&u.TelegramID, &u.SubscriptionStatus, &u.RemainingInterpretations,
		&u.LastFreeInterpretationAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *types.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = types.StatusFree
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
INSERT INTO users (id, email, password_hash, name, birth_date, telegram_id,
  subscription_status, remaining_interpretations, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`, u.ID, strings.TrimSpace(strings.ToLower(u.Email)), u.PasswordHash, strings.TrimSpace(u.Name),
		u.BirthDate, u.TelegramID, u.SubscriptionStatus, u.RemainingInterpretations, now)
	if isUniqueViolation(err) {
		return types.ErrConflict
	}
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	email = strings.TrimSpace(strings.ToLower(email))
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *PostgresStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
}

// LinkTelegramID is a single conditional update: it succeeds only when the
// user carries no Telegram identity yet or already carries this one, so
// repeated linking is a no-op. The unique index on telegram_id rejects an
// identity bound to a different user.
func (s *PostgresStore) LinkTelegramID(ctx context.Context, userID string, telegramID int64) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx, `
UPDATE users
SET telegram_id = $2, updated_at = NOW()
WHERE id = $1 AND (telegram_id IS NULL OR telegram_id = $2)
RETURNING `+userColumns, userID, telegramID))
	if isUniqueViolation(err) {
		return nil, types.ErrConflict
	}
	if errors.Is(err, types.ErrNotFound) {
		// Either the user does not exist, or it is already linked to a
		// different Telegram identity.
		if _, getErr := s.GetUser(ctx, userID); getErr != nil {
			return nil, getErr
		}
		return nil, types.ErrConflict
	}
	return u, err
}

// ConsumeInterpretation decrements the remaining counter only while it is
// positive. Two concurrent calls with one unit left can never both succeed.
func (s *PostgresStore) ConsumeInterpretation(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var remaining int
	err := s.pool.QueryRow(ctx, `
UPDATE users
SET remaining_interpretations = remaining_interpretations - 1,
    last_free_interpretation_at = CASE WHEN subscription_status = 'FREE'
      THEN NOW() ELSE last_free_interpretation_at END,
    updated_at = NOW()
WHERE id = $1 AND remaining_interpretations > 0
RETURNING remaining_interpretations
`, userID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, types.ErrNotFound
		}
		return 0, types.ErrQuotaExceeded
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (s *PostgresStore) UpgradeToPremium(ctx context.Context, userID string, allotment int) (*types.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return scanUser(s.pool.QueryRow(ctx, `
UPDATE users
SET subscription_status = 'PREMIUM', remaining_interpretations = $2, updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, userID, allotment))
}

func (s *PostgresStore) ResetPremiumQuota(ctx context.Context, allotment int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET remaining_interpretations = $1, updated_at = NOW()
WHERE subscription_status = 'PREMIUM' AND remaining_interpretations < $1
`, allotment)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ReplenishFreeQuota(ctx context.Context, allotment int, notUsedFor time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-notUsedFor)
	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET remaining_interpretations = $1, updated_at = NOW()
WHERE subscription_status = 'FREE'
  AND remaining_interpretations = 0
  AND (last_free_interpretation_at IS NULL OR last_free_interpretation_at <= $2)
`, allotment, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) RecordPayment(ctx context.Context, p types.Payment) (inserted bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
INSERT INTO payments (user_id, provider, currency, total_amount, invoice_payload,
  telegram_payment_charge_id, provider_payment_charge_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (telegram_payment_charge_id) DO NOTHING
`, p.UserID, strings.TrimSpace(p.Provider), strings.TrimSpace(p.Currency), p.TotalAmount,
		strings.TrimSpace(p.InvoicePayload), strings.TrimSpace(p.TelegramPaymentCharge),
		strings.TrimSpace(p.ProviderPaymentCharge))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *types.ChatSession) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO chat_sessions (id, user_id, title, channel, created_at)
VALUES ($1, $2, $3, $4, $5)
`, sess.ID, sess.UserID, sess.Title, sess.Channel, sess.CreatedAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*types.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var sess types.ChatSession
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, title, channel, created_at
FROM chat_sessions
WHERE id = $1
`, id).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.Channel, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSessionsPage returns sessions most-recent-first. Page boundaries are
// exact: page k is [(k-1)*limit, k*limit) of that order.
func (s *PostgresStore) GetSessionsPage(ctx context.Context, userID string, page, limit int) ([]types.ChatSession, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	offset := (page - 1) * limit
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, title, channel, created_at
FROM chat_sessions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]types.ChatSession, 0, limit)
	for rows.Next() {
		var sess types.ChatSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.Channel, &sess.CreatedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *PostgresStore) GetSessionMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT id, session_id, role, content, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) AddMessage(ctx context.Context, m *types.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO messages (id, session_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)
`, m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt)
	return err
}

// GetPreviousDreams collects the opening dream text of the user's other
// sessions, newest sessions first. They are passed to the interpretation
// engine as context.
func (s *PostgresStore) GetPreviousDreams(ctx context.Context, userID, excludeSessionID string, max int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT m.content
FROM chat_sessions s
JOIN LATERAL (
  SELECT content
  FROM messages
  WHERE session_id = s.id AND role = 'user'
  ORDER BY created_at ASC, id ASC
  LIMIT 1
) m ON TRUE
WHERE s.user_id = $1 AND s.id <> $2
ORDER BY s.created_at DESC
LIMIT $3
`, userID, excludeSessionID, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dreams []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		dreams = append(dreams, content)
	}
	return dreams, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
