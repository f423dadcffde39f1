package auth

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jrsteele09/smartcane-client/internal/config"
)

const (
	defaultMaxAttempts       = 5
	defaultLockDuration      = 5 * time.Second
	defaultCountdownInterval = 500 * time.Millisecond
)

// Lockout throttles password logins after repeated failures. It is advisory:
// it only stops this client from submitting.
type Lockout struct {
	maxAttempts  int
	lockDuration time.Duration
	interval     time.Duration
	nowTime      func() time.Time

	lock        sync.Mutex
	failures    int
	lockedUntil time.Time
}

type LockoutOption func(*Lockout)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) LockoutOption {
	return func(l *Lockout) {
		l.nowTime = nowFunc
	}
}

func WithMaxAttempts(n int) LockoutOption {
	return func(l *Lockout) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithLockDuration(d time.Duration) LockoutOption {
	return func(l *Lockout) {
		l.lockDuration = d
	}
}

func WithCountdownInterval(d time.Duration) LockoutOption {
	return func(l *Lockout) {
		if d > 0 {
			l.interval = d
		}
	}
}

func NewLockout(options ...LockoutOption) *Lockout {
	l := &Lockout{
		maxAttempts:  defaultMaxAttempts,
		lockDuration: defaultLockDuration,
		interval:     defaultCountdownInterval,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// NewLockoutFromConfig applies the configured threshold, duration and
// interval before any explicit options.
func NewLockoutFromConfig(cfg config.SecurityConfig, options ...LockoutOption) *Lockout {
	opts := []LockoutOption{
		WithMaxAttempts(cfg.GetMaxLoginAttempts()),
		WithLockDuration(cfg.GetLoginLockDuration()),
		WithCountdownInterval(cfg.GetLockCountdownInterval()),
	}
	return NewLockout(append(opts, options...)...)
}

// Check returns a *LockedError while the lock window is open.
func (l *Lockout) Check() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if remaining := l.remainingLocked(); remaining > 0 {
		return &LockedError{RemainingSeconds: remaining}
	}
	return nil
}

// RecordFailure counts a failed login. Reaching the threshold opens the lock
// window and resets the counter. It reports whether the lock was opened.
func (l *Lockout) RecordFailure() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.failures++
	if l.failures >= l.maxAttempts {
		l.lockedUntil = l.nowTime().Add(l.lockDuration)
		l.failures = 0
		return true
	}
	return false
}

// RecordSuccess resets the counter and any lock.
func (l *Lockout) RecordSuccess() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.failures = 0
	l.lockedUntil = time.Time{}
}

func (l *Lockout) Locked() bool {
	return l.RemainingSeconds() > 0
}

// RemainingSeconds is the lock time left, rounded up to whole seconds.
func (l *Lockout) RemainingSeconds() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.remainingLocked()
}

func (l *Lockout) remainingLocked() int {
	if l.lockedUntil.IsZero() {
		return 0
	}
	diff := l.lockedUntil.Sub(l.nowTime())
	if diff <= 0 {
		l.lockedUntil = time.Time{}
		return 0
	}
	return int(math.Ceil(diff.Seconds()))
}

func (l *Lockout) Failures() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.failures
}

// RemainingAttempts is how many failures are left before the lock opens.
func (l *Lockout) RemainingAttempts() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return max(0, l.maxAttempts-l.failures)
}

// Countdown calls tick with the remaining seconds immediately and then on
// every interval until the lock expires (final tick is 0) or ctx ends.
func (l *Lockout) Countdown(ctx context.Context, tick func(remaining int)) {
	remaining := l.RemainingSeconds()
	tick(remaining)
	if remaining == 0 {
		return
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining = l.RemainingSeconds()
			tick(remaining)
			if remaining == 0 {
				return
			}
		}
	}
}
