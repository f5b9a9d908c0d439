package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hoctap/internal/database"
	"hoctap/internal/database/dbtest"
	"hoctap/internal/models"
	"hoctap/internal/repository"
)

// clock is a settable time source for services under test
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentEmail struct {
	to, code string
	purpose  models.Purpose
}

// fakeMailer records deliveries and can be told to fail
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *fakeMailer) SendOTPEmail(ctx context.Context, toEmail, code string, purpose models.Purpose, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: toEmail, code: code, purpose: purpose})
	return nil
}

func (m *fakeMailer) last() sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fakeLimiter struct {
	wait time.Duration
	err  error
}

func (l *fakeLimiter) Reserve(ctx context.Context, userID, purpose string) (time.Duration, error) {
	return l.wait, l.err
}

var errSMTPDown = errors.New("smtp down")

func openDB(t *testing.T) (*database.DB, *repository.UserRepository) {
	t.Helper()
	db := dbtest.Open(t)
	return db, repository.NewUserRepository(db)
}
