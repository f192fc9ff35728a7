package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Jobs a handler gave up on are kept in dlq:<queue>, newest first, until an
// operator inspects or requeues them.
const DLQPrefix = "dlq:"

// DLQEntry is a dead job plus why and when it failed.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// SendToDLQ records a dead job. Failures are logged; the job is then lost.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      attempts,
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal entry")
		return
	}
	// the worker ctx is already cancelled when a job dies during shutdown
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := rdb.LPush(pushCtx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_type", jobType).Msg("dlq: push failed, job dropped")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Int("attempts", attempts).
		Str("reason", reason).
		Msg("dlq: job dead-lettered")
}

func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// DLQPeek returns the n newest entries. Unreadable entries are skipped.
func DLQPeek(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DLQEntry, error) {
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if json.Unmarshal([]byte(raw), &e) == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// DLQRequeue moves up to n of the oldest entries back onto their queue as
// fresh jobs and returns how many were moved. Entries that cannot be decoded
// stay in the DLQ.
func DLQRequeue(ctx context.Context, rdb *redis.Client, queue string, n int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	for moved < n {
		raw, err := rdb.RPop(ctx, key).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, err
		}
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			// put it back at the newest end so the loop does not spin on it
			_ = rdb.LPush(ctx, key, raw).Err()
			return moved, fmt.Errorf("dlq: undecodable entry: %w", err)
		}
		job, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload, EnqueuedAt: time.Now().UTC()})
		if err != nil {
			return moved, err
		}
		if err := rdb.LPush(ctx, e.OriginalQueue, job).Err(); err != nil {
			_ = rdb.RPush(ctx, key, raw).Err()
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("jobs", moved).Msg("dlq: requeued")
	}
	return moved, nil
}
