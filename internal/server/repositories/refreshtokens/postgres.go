package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/dbx"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sqlx.DB or *sqlx.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		token.Token, token.UserID, token.CreatedAt, token.ExpiresAt).Scan(&token.ID)
	if err != nil {
		return dbx.MapError(err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT rt.id, rt.token, rt.user_id, rt.created_at, rt.expires_at, rt.revoked_at,
		       u.username, u.email, u.role, u.password_hash, u.created_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token = $1
	`
	rt := &models.RefreshToken{User: &models.User{}}
	err := r.db.QueryRowxContext(ctx, query, token).Scan(
		&rt.ID, &rt.Token, &rt.UserID, &rt.CreatedAt, &rt.ExpiresAt, &rt.RevokedAt,
		&rt.User.Username, &rt.User.Email, &rt.User.Role, &rt.User.PasswordHash, &rt.User.CreatedAt,
	)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	rt.User.ID = rt.UserID
	return rt, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, token string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, token, at)
	if err != nil {
		return false, dbx.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.MapError(err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING id, token, user_id, created_at, expires_at, revoked_at
	`
	rt := &models.RefreshToken{}
	if err := r.db.GetContext(ctx, rt, query, token, at); err != nil {
		return nil, dbx.MapError(err)
	}
	return rt, nil
}

func (r *PostgresRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR revoked_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, dbx.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.MapError(err)
	}
	return n, nil
}
