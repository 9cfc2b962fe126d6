package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password, refresh_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, fullname, avatar, cover_image, password)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Fullname, user.Avatar, user.CoverImage, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByIdentifier matches on username OR email; empty criteria never match.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, lookup models.UserLookup) (*models.User, error) {
	if lookup.IsEmpty() {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1
		 `

	return r.scanUser(r.db.QueryRowContext(ctx, query, lookup.Username, lookup.Email))
}

// FindPublicByID returns the sanitized user with its ordered watch history.
func (r *PostgresRepository) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	query :=
		`SELECT u.id, u.username, u.email, u.fullname, u.avatar, u.cover_image, u.created_at, u.updated_at,
		        COALESCE((SELECT string_agg(w.video_id::text, ',' ORDER BY w.position)
		                  FROM watch_history w WHERE w.user_id = u.id), '')
		 FROM users u
		 WHERE u.id = $1
		 `

	u := &models.PublicUser{}
	var history string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.Fullname, &u.Avatar, &u.CoverImage, &u.CreatedAt, &u.UpdatedAt, &history)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.WatchHistory = []string{}
	if history != "" {
		u.WatchHistory = strings.Split(history, ",")
	}

	return u, nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.execOne(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, token)
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE users SET refresh_token = NULL WHERE id = $1`, id)
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	query :=
		`UPDATE users SET refresh_token = $3
		 WHERE id = $1 AND refresh_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, current, next)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id, fullname, email string) error {
	return r.execOne(ctx, `UPDATE users SET fullname = $2, email = $3, updated_at = now() WHERE id = $1`, id, fullname, email)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.execOne(ctx, `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`, id, url)
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) error {
	return r.execOne(ctx, `UPDATE users SET cover_image = $2, updated_at = now() WHERE id = $1`, id, url)
}

// execOne runs a single-row update and maps zero affected rows to ErrorNotFound.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var refresh sql.NullString

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Fullname, &user.Avatar, &user.CoverImage,
		&user.PasswordHash, &refresh, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.RefreshToken = refresh.String
	return user, nil
}
