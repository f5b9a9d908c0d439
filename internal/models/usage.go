package models

import "time"

// DailyUsage is the exercise counter for one user on one quota day
type DailyUsage struct {
	ID        int64
	UserID    string
	UsageDate string // YYYY-MM-DD in the quota timezone
	Count     int
	LastUsed  time.Time
}
