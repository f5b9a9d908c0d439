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

// UsageRepository stores per-day exercise counters
type UsageRepository struct {
	db database.DBTX
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db database.DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// GetUsage returns the counter for (userID, date), or nil when none exists
func (r *UsageRepository) GetUsage(ctx context.Context, userID, date string) (*models.DailyUsage, error) {
	query := `
		SELECT id, user_id, usage_date, count, last_used
		FROM daily_exercise_usage
		WHERE user_id = ? AND usage_date = ?
	`
	usage := &models.DailyUsage{}
	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(
		&usage.ID,
		&usage.UserID,
		&usage.UsageDate,
		&usage.Count,
		&usage.LastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}
	return usage, nil
}

// IncrementWithinLimit adds count to the (userID, date) counter only if the
// total stays at or below limit. The row is created on first use. It reports
// false when the increment would exceed the limit.
func (r *UsageRepository) IncrementWithinLimit(ctx context.Context, userID, date string, count, limit int, now time.Time) (bool, error) {
	insert := r.db.GetDialect().IgnoreConflict(`
		INSERT INTO daily_exercise_usage (user_id, usage_date, count, last_used)
		VALUES (?, ?, 0, ?)`)
	if _, err := r.db.ExecContext(ctx, insert, userID, date, now.UTC()); err != nil {
		return false, fmt.Errorf("failed to create daily usage: %w", err)
	}

	update := `
		UPDATE daily_exercise_usage
		SET count = count + ?, last_used = ?
		WHERE user_id = ? AND usage_date = ? AND count + ? <= ?
	`
	result, err := r.db.ExecContext(ctx, update, count, now.UTC(), userID, date, count, limit)
	if err != nil {
		return false, fmt.Errorf("failed to record daily usage: %w", err)
	}
	return affectedOne(result)
}
