package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const paymentLockPrefix = "payroll:payment-lock:"

// ErrLockNotHeld is returned by Release when the key expired or now belongs
// to another holder. The other holder's lock is left in place.
var ErrLockNotHeld = errors.New("payment lock no longer held")

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// PaymentLocks holds a short-lived Redis key per in-flight payment
// idempotency key so concurrent submissions across instances are refused
// instead of racing on the ledger.
type PaymentLocks struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

func NewPaymentLocks(client redis.Cmdable, ttl time.Duration) *PaymentLocks {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PaymentLocks{client: client, ttl: ttl, newToken: uuid.NewString}
}

func PaymentLockKey(tenantID, key string) string {
	return paymentLockPrefix + tenantID + ":" + key
}

// Acquire stores a fresh token under the key. The token must be handed back
// to Release.
func (l *PaymentLocks) Acquire(ctx context.Context, tenantID, key string) (string, bool, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, PaymentLockKey(tenantID, key), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *PaymentLocks) Release(ctx context.Context, tenantID, key, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{PaymentLockKey(tenantID, key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("release payment lock: %w", err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
