package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// answerCache captures in-flight CBT answers keyed by attempt, last write
// wins per question.
type answerCache interface {
	Capture(ctx context.Context, attemptID, questionID, answer string) error
	Snapshot(ctx context.Context, attemptID string) (map[string]string, error)
	Clear(ctx context.Context, attemptID string) error
}

// RedisAnswerCache stores live answers in a redis hash per attempt. Entries
// expire on their own once the attempt deadline plus slack has passed, so a
// crashed sweep never leaks keys.
type RedisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAnswerCache constructs a RedisAnswerCache. ttl should cover the
// longest exam duration plus slack.
func NewRedisAnswerCache(client *redis.Client, ttl time.Duration) *RedisAnswerCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisAnswerCache{client: client, ttl: ttl}
}

func answerKey(attemptID string) string {
	return fmt.Sprintf("cbt:answers:%s", attemptID)
}

// Capture records one answer.
func (c *RedisAnswerCache) Capture(ctx context.Context, attemptID, questionID, answer string) error {
	key := answerKey(attemptID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, questionID, answer)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("capture answer: %w", err)
	}
	return nil
}

// Snapshot returns all captured answers for the attempt.
func (c *RedisAnswerCache) Snapshot(ctx context.Context, attemptID string) (map[string]string, error) {
	answers, err := c.client.HGetAll(ctx, answerKey(attemptID)).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot answers: %w", err)
	}
	return answers, nil
}

// Clear drops the attempt's captured answers.
func (c *RedisAnswerCache) Clear(ctx context.Context, attemptID string) error {
	if err := c.client.Del(ctx, answerKey(attemptID)).Err(); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return nil
}
