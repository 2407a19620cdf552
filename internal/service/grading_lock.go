package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLockHeld reports that another run currently owns the submission's grading lock.
var ErrLockHeld = errors.New("grading lock already held")

const defaultGradingLockTTL = 3 * time.Minute

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// GradingLock serialises grading runs of one submission.
type GradingLock interface {
	Acquire(ctx context.Context, submissionID uint) (func(context.Context), error)
}

type redisGradingLock struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisGradingLock returns a lock backed by SET NX with a per-holder token.
func NewRedisGradingLock(client *redis.Client, ttl time.Duration, logger zerolog.Logger) GradingLock {
	if ttl <= 0 {
		ttl = defaultGradingLockTTL
	}
	return &redisGradingLock{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "grading_lock").Logger(),
	}
}

func gradingLockKey(submissionID uint) string {
	return fmt.Sprintf("grading:lock:%d", submissionID)
}

func (l *redisGradingLock) Acquire(ctx context.Context, submissionID uint) (func(context.Context), error) {
	key := gradingLockKey(submissionID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	release := func(releaseCtx context.Context) {
		if err := releaseLockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to release grading lock")
		}
	}

	return release, nil
}
