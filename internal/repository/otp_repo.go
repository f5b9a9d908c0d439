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

// OTPRepository stores one-time verification codes
type OTPRepository struct {
	db database.DBTX
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db database.DBTX) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new code
func (r *OTPRepository) Create(ctx context.Context, otp *models.OneTimeCode) error {
	query := `
		INSERT INTO otp_codes (id, user_id, email, code, purpose, created_at, expires_at, attempts, max_attempts, used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, otp.ID, otp.UserID, otp.Email, otp.Code, string(otp.Purpose),
		otp.CreatedAt.UTC(), otp.ExpiresAt.UTC(), otp.Attempts, otp.MaxAttempts, otp.Used)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}
	return nil
}

// Delete removes a code by ID
func (r *OTPRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM otp_codes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// DeleteUnused removes every unused code for (userID, purpose)
func (r *OTPRepository) DeleteUnused(ctx context.Context, userID string, purpose models.Purpose) (int64, error) {
	query := "DELETE FROM otp_codes WHERE user_id = ? AND purpose = ? AND used = ?"
	result, err := r.db.ExecContext(ctx, query, userID, string(purpose), false)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unused otps: %w", err)
	}
	return result.RowsAffected()
}

// FindLatestUnused returns the newest unused code for (userID, purpose),
// restricted to id when id is not empty. Expired rows are returned too so
// the caller can retire them.
func (r *OTPRepository) FindLatestUnused(ctx context.Context, userID string, purpose models.Purpose, id string) (*models.OneTimeCode, error) {
	return r.findLatest(ctx, userID, purpose, id, true)
}

// FindLatest is FindLatestUnused without the used filter
func (r *OTPRepository) FindLatest(ctx context.Context, userID string, purpose models.Purpose, id string) (*models.OneTimeCode, error) {
	return r.findLatest(ctx, userID, purpose, id, false)
}

func (r *OTPRepository) findLatest(ctx context.Context, userID string, purpose models.Purpose, id string, unusedOnly bool) (*models.OneTimeCode, error) {
	query := `
		SELECT id, user_id, email, code, purpose, created_at, expires_at, attempts, max_attempts, used, used_at
		FROM otp_codes
		WHERE user_id = ? AND purpose = ?
	`
	args := []any{userID, string(purpose)}
	if unusedOnly {
		query += " AND used = ?"
		args = append(args, false)
	}
	if id != "" {
		query += " AND id = ?"
		args = append(args, id)
	}
	query += " ORDER BY created_at DESC LIMIT 1"

	return scanOTP(r.db.QueryRowContext(ctx, query, args...))
}

// GetByID returns a code regardless of state
func (r *OTPRepository) GetByID(ctx context.Context, id string) (*models.OneTimeCode, error) {
	query := `
		SELECT id, user_id, email, code, purpose, created_at, expires_at, attempts, max_attempts, used, used_at
		FROM otp_codes
		WHERE id = ?
	`
	return scanOTP(r.db.QueryRowContext(ctx, query, id))
}

// MarkUsed retires an unused code. It reports false if the code was already used.
func (r *OTPRepository) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	query := "UPDATE otp_codes SET used = ?, used_at = ? WHERE id = ? AND used = ?"
	result, err := r.db.ExecContext(ctx, query, true, now.UTC(), id, false)
	if err != nil {
		return false, fmt.Errorf("failed to mark otp used: %w", err)
	}
	return affectedOne(result)
}

// RecordFailedAttempt increments attempts and retires the code once attempts
// reach max_attempts, in one statement. It reports false if the code was
// already used.
func (r *OTPRepository) RecordFailedAttempt(ctx context.Context, id string, now time.Time) (bool, error) {
	// used and used_at are assigned before attempts; MySQL applies SET
	// assignments left to right
	query := `
		UPDATE otp_codes
		SET used = CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE used END,
			used_at = CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE used_at END,
			attempts = attempts + 1
		WHERE id = ? AND used = ?
	`
	result, err := r.db.ExecContext(ctx, query, true, now.UTC(), id, false)
	if err != nil {
		return false, fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return affectedOne(result)
}

// PurgeExpired deletes codes that expired before cutoff
func (r *OTPRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM otp_codes WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired otps: %w", err)
	}
	return result.RowsAffected()
}

func scanOTP(row *sql.Row) (*models.OneTimeCode, error) {
	otp := &models.OneTimeCode{}
	var purpose string
	var usedAt sql.NullTime
	err := row.Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Email,
		&otp.Code,
		&purpose,
		&otp.CreatedAt,
		&otp.ExpiresAt,
		&otp.Attempts,
		&otp.MaxAttempts,
		&otp.Used,
		&usedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	otp.Purpose = models.Purpose(purpose)
	if usedAt.Valid {
		t := usedAt.Time
		otp.UsedAt = &t
	}
	return otp, nil
}
