package models

import "time"

// Role values stored in users.role
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Subscription plans
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// User is an account provisioned by the auth provider, carrying the token
// and unlock counters this service maintains
type User struct {
	ID       string
	Email    string
	FullName string
	Role     string
	Plan     string

	TokenQuota      int
	TokensUsedToday int
	TokensLastReset *time.Time

	UnlockCodeHash string
	UnlockQuota    int
	UnlocksUsed    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user may act on other users' counters
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasUnlockCode reports whether an unlock code has been configured
func (u *User) HasUnlockCode() bool {
	return u.UnlockCodeHash != ""
}
