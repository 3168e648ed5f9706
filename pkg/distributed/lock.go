package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLockTimeout = errors.New("lock acquisition timeout")
	ErrLockNotHeld = errors.New("lock was not held by this instance")
)

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Lock is a Redis lease lock. It is renewed at half its TTL while held.
type Lock struct {
	client    *redis.Client
	key       string
	value     string
	ttl       time.Duration
	stopRenew chan struct{}
}

func NewLock(client *redis.Client, key string, ttl time.Duration) (*Lock, error) {
	value, err := lockValue()
	if err != nil {
		return nil, err
	}
	return &Lock{
		client:    client,
		key:       key,
		value:     value,
		ttl:       ttl,
		stopRenew: make(chan struct{}),
	}, nil
}

func lockValue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock value: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Acquire retries until the lock is held, timeout passes or ctx ends.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		held, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if held {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// TryAcquire attempts to acquire the lock without blocking
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		go l.renew()
	}
	return acquired, nil
}

// Release deletes the key only if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	close(l.stopRenew)

	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (l *Lock) renew() {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/2)
			current, err := l.client.Get(ctx, l.key).Result()
			if err != nil || current != l.value {
				cancel()
				return
			}
			l.client.Expire(ctx, l.key, l.ttl)
			cancel()
		case <-l.stopRenew:
			return
		}
	}
}

// LockManager hands out locks under a common key prefix.
type LockManager struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewLockManager(client *redis.Client, prefix string, ttl, timeout time.Duration) *LockManager {
	return &LockManager{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		timeout: timeout,
	}
}

// WithLock runs fn while holding the lock named key.
func (lm *LockManager) WithLock(ctx context.Context, key string, fn func() error) error {
	lock, err := NewLock(lm.client, lm.prefix+key, lm.ttl)
	if err != nil {
		return err
	}
	if err := lock.Acquire(ctx, lm.timeout); err != nil {
		return err
	}

	fnErr := fn()
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}
