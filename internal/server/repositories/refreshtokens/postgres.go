package refreshtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx). Rotate issues two statements, so callers run it inside
// dbx.WithTx to make consumption and insertion commit together.
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Create inserts a new refresh token row.
func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, name, email, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		token.Token, token.UserID, token.Name, token.Email, token.Expires).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	token.Used = false
	return nil
}

// ListUnused returns the user's unused, unexpired rows, newest first.
func (r *PostgresRepository) ListUnused(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, name, email, expires_at, used
		FROM refresh_tokens
		WHERE user_id = $1 AND used = FALSE AND expires_at > $2
		ORDER BY id DESC
	`
	return r.list(ctx, query, userID, r.now())
}

// ListByUser returns all of the user's rows, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, name, email, expires_at, used
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.RefreshToken
	for rows.Next() {
		var t models.RefreshToken
		if err := rows.Scan(&t.ID, &t.Token, &t.UserID, &t.Name, &t.Email, &t.Expires, &t.Used); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Rotate consumes consumedHash with a conditional update and inserts next.
// Under concurrent rotation the row lock serializes the updates, and every
// loser observes zero affected rows.
func (r *PostgresRepository) Rotate(ctx context.Context, consumedHash string, next *models.RefreshToken) error {
	query := `
		UPDATE refresh_tokens SET used = TRUE
		WHERE token = $1 AND used = FALSE
	`
	n, err := dbx.ExecAffected(ctx, r.db, query, consumedHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n != 1 {
		return common.ErrInvalidOrExpiredToken
	}

	return r.Create(ctx, next)
}

// Delete removes the user's row with the given hash.
func (r *PostgresRepository) Delete(ctx context.Context, userID int64, hash string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND token = $2
	`
	n, err := dbx.ExecAffected(ctx, r.db, query, userID, hash)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
