package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisList source.
type RedisOptions struct {
	// EndMarker, when non-empty, ends the sequence when popped. The marker
	// itself is not yielded.
	EndMarker string

	// IdleTimeout ends the sequence after this long without a value.
	// Zero waits forever.
	IdleTimeout time.Duration

	// PollInterval bounds each blocking pop so cancellation is noticed.
	// Redis counts blocking timeouts in whole seconds, so shorter values
	// are raised to 1s. Default 1s.
	PollInterval time.Duration
}

// RedisList yields values popped from the head of a Redis list with BLPOP.
// It is a hot source: values pushed while nobody pulls wait in Redis.
func RedisList(client redis.Cmdable, key string, opts RedisOptions) Source[string] {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &redisListSource{client: client, key: key, opts: opts}
}

type redisListSource struct {
	client redis.Cmdable
	key    string
	opts   RedisOptions
}

func (s *redisListSource) Next(ctx context.Context) (string, bool, error) {
	idleSince := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		wait := s.opts.PollInterval
		if s.opts.IdleTimeout > 0 {
			remaining := s.opts.IdleTimeout - time.Since(idleSince)
			if remaining <= 0 {
				return "", false, nil
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if wait < time.Second {
			wait = time.Second
		}

		res, err := s.client.BLPop(ctx, wait, s.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			return "", false, fmt.Errorf("redis BLPOP %s: %w", s.key, err)
		}

		// BLPOP replies with [key, value].
		if len(res) != 2 {
			return "", false, fmt.Errorf("redis BLPOP %s: unexpected reply %v", s.key, res)
		}
		if s.opts.EndMarker != "" && res[1] == s.opts.EndMarker {
			return "", false, nil
		}
		return res[1], true, nil
	}
}

// Close is a no-op; the client belongs to the caller.
func (s *redisListSource) Close() error {
	return nil
}
