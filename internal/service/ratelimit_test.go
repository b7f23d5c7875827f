package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
)

type stubCounter struct {
	count int
	err   error

	gotUserID int64
	gotType   domain.TransactionType
	gotSince  time.Time
}

func (s *stubCounter) CountSince(_ context.Context, userID int64, txType domain.TransactionType, since time.Time) (int, error) {
	s.gotUserID = userID
	s.gotType = txType
	s.gotSince = since
	return s.count, s.err
}

func TestTipRateLimiter_AllowsUnderLimit(t *testing.T) {
	counter := &stubCounter{count: 9}
	l := NewTipRateLimiter(counter, 10, time.Minute)

	allowed, retryAfter := l.CheckOrAllow(context.Background(), 42)

	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.Equal(t, int64(42), counter.gotUserID)
	assert.Equal(t, domain.TypeTipSent, counter.gotType)
	assert.WithinDuration(t, time.Now().Add(-time.Minute), counter.gotSince, 2*time.Second)
}

func TestTipRateLimiter_BlocksAtLimit(t *testing.T) {
	counter := &stubCounter{count: 10}
	l := NewTipRateLimiter(counter, 10, time.Minute)

	allowed, retryAfter := l.CheckOrAllow(context.Background(), 42)

	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestTipRateLimiter_FailsOpenOnCounterError(t *testing.T) {
	counter := &stubCounter{err: errors.New("connection refused")}
	l := NewTipRateLimiter(counter, 10, time.Minute)

	allowed, retryAfter := l.CheckOrAllow(context.Background(), 42)

	assert.True(t, allowed, "a storage error must not block tipping")
	assert.Zero(t, retryAfter)
}
