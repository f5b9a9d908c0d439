package handlers

import "time"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey       ContextKey = "user"
	TranslatorContextKey ContextKey = "translator"
)

// Token and unlock actions accepted in POST bodies
const (
	ActionReset    = "reset"
	ActionAdd      = "add"
	ActionSetQuota = "set_quota"
	ActionConsume  = "consume"
	ActionSetPlan  = "set_plan"

	ActionSet    = "set"
	ActionVerify = "verify"
)

const healthTimeout = 2 * time.Second
