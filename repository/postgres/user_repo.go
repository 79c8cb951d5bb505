package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

const userColumns = `id, email, full_name, role, status, avatar_url, metadata, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed profile repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM profiles WHERE id = $1`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	return scanUser(conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM profiles
	WHERE ($1 = '' OR role = $1)
	  AND ($2 = '' OR status = $2)
	ORDER BY created_at
	LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.Role, filter.Status, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) CountAdmins(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM profiles WHERE role = 'admin' AND status = 'active'`
	var n int
	if err := conn(ctx, r.pool).QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO profiles (id, email, full_name, role, status, avatar_url, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET email = EXCLUDED.email,
		full_name = EXCLUDED.full_name,
		role = EXCLUDED.role,
		status = EXCLUDED.status,
		avatar_url = EXCLUDED.avatar_url,
		metadata = EXCLUDED.metadata,
		updated_at = NOW()
	RETURNING created_at, updated_at;
	`

	var createdAt, updatedAt time.Time
	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.Role,
		user.Status,
		user.AvatarURL,
		marshalMap(user.Metadata),
		nullTime(user.CreatedAt),
	).Scan(&createdAt, &updatedAt); err != nil {
		return err
	}

	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id, role string) error {
	const query = `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row scanner) (*domain.User, error) {
	var user domain.User
	var metadata []byte

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.Status,
		&user.AvatarURL,
		&metadata,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &user.Metadata)
	}
	return &user, nil
}

type deviceTokenRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceTokenRepository stores push registrations.
func NewDeviceTokenRepository(pool *pgxpool.Pool) repository.DeviceTokenRepository {
	return &deviceTokenRepository{pool: pool}
}

func (r *deviceTokenRepository) Save(ctx context.Context, token *domain.DeviceToken) error {
	if token == nil || token.Token == "" || token.UserID == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO device_tokens (token, user_id, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE
	SET user_id = EXCLUDED.user_id,
		platform = EXCLUDED.platform
	RETURNING created_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query, token.Token, token.UserID, token.Platform).Scan(&token.CreatedAt)
}

func (r *deviceTokenRepository) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	const query = `SELECT user_id, token, platform, created_at FROM device_tokens WHERE user_id = $1`
	rows, err := conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.DeviceToken
	for rows.Next() {
		var t domain.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *deviceTokenRepository) Delete(ctx context.Context, userID, token string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM device_tokens WHERE token = $1 AND ($2 = '' OR user_id = $2)`, token, userID)
	return err
}
