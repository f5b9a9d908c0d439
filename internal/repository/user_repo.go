package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hoctap/internal/database"
	"hoctap/internal/models"
)

const userColumns = `
	id, email, full_name, role, plan,
	token_quota, tokens_used_today, tokens_last_reset,
	COALESCE(unlock_code_hash, ''), unlock_quota, unlocks_used,
	created_at, updated_at
`

// UserRepository handles the token and unlock counters on users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user row. Column defaults apply to zero counters.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	query := `
		INSERT INTO users (id, email, full_name, role, plan, token_quota, unlock_quota, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.FullName, user.Role, user.Plan,
		user.TokenQuota, user.UnlockQuota, now, now)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID; a missing user yields nil, nil
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ResetTokens zeroes one user's daily token usage
func (r *UserRepository) ResetTokens(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE users
		SET tokens_used_today = 0, tokens_last_reset = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, now.UTC(), now.UTC(), id); err != nil {
		return fmt.Errorf("failed to reset tokens: %w", err)
	}
	return nil
}

// ResetAllTokens zeroes daily token usage for every user in one statement
func (r *UserRepository) ResetAllTokens(ctx context.Context, now time.Time) (int64, error) {
	query := "UPDATE users SET tokens_used_today = 0, tokens_last_reset = ?, updated_at = ?"
	result, err := r.db.ExecContext(ctx, query, now.UTC(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset all tokens: %w", err)
	}
	return result.RowsAffected()
}

// AddTokenQuota raises a user's quota by amount
func (r *UserRepository) AddTokenQuota(ctx context.Context, id string, amount int, now time.Time) error {
	query := "UPDATE users SET token_quota = token_quota + ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, amount, now.UTC(), id); err != nil {
		return fmt.Errorf("failed to add token quota: %w", err)
	}
	return nil
}

// SetTokenQuota overwrites a user's quota
func (r *UserRepository) SetTokenQuota(ctx context.Context, id string, quota int, now time.Time) error {
	query := "UPDATE users SET token_quota = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, quota, now.UTC(), id); err != nil {
		return fmt.Errorf("failed to set token quota: %w", err)
	}
	return nil
}

// SetPlan stores the plan together with the quota it grants
func (r *UserRepository) SetPlan(ctx context.Context, id, plan string, quota int, now time.Time) error {
	query := "UPDATE users SET plan = ?, token_quota = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, plan, quota, now.UTC(), id); err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}
	return nil
}

// ConsumeTokens adds amount to today's usage only if the result stays within
// the quota. It reports false when nothing was updated.
func (r *UserRepository) ConsumeTokens(ctx context.Context, id string, amount int, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET tokens_used_today = tokens_used_today + ?, updated_at = ?
		WHERE id = ? AND tokens_used_today + ? <= token_quota
	`
	result, err := r.db.ExecContext(ctx, query, amount, now.UTC(), id, amount)
	if err != nil {
		return false, fmt.Errorf("failed to consume tokens: %w", err)
	}
	return affectedOne(result)
}

// SetUnlockCodeHash stores the keyed hash of a user's unlock code
func (r *UserRepository) SetUnlockCodeHash(ctx context.Context, id, hash string, now time.Time) error {
	query := "UPDATE users SET unlock_code_hash = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, hash, now.UTC(), id); err != nil {
		return fmt.Errorf("failed to set unlock code: %w", err)
	}
	return nil
}

// ConsumeUnlock increments unlocks_used unless the quota is already spent.
// It reports false when nothing was updated.
func (r *UserRepository) ConsumeUnlock(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET unlocks_used = unlocks_used + 1, updated_at = ?
		WHERE id = ? AND unlocks_used < unlock_quota
	`
	result, err := r.db.ExecContext(ctx, query, now.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to consume unlock: %w", err)
	}
	return affectedOne(result)
}

// ResetAllUnlocks zeroes unlocks_used for every user
func (r *UserRepository) ResetAllUnlocks(ctx context.Context, now time.Time) (int64, error) {
	query := "UPDATE users SET unlocks_used = 0, updated_at = ?"
	result, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reset unlocks: %w", err)
	}
	return result.RowsAffected()
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lastReset sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.Plan,
		&user.TokenQuota,
		&user.TokensUsedToday,
		&lastReset,
		&user.UnlockCodeHash,
		&user.UnlockQuota,
		&user.UnlocksUsed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReset.Valid {
		t := lastReset.Time
		user.TokensLastReset = &t
	}
	return user, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
