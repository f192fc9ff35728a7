package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"miscompras/internal/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

type fakeSender struct {
	mu    sync.Mutex
	fails int
	err   error
	sent  []string
}

func (f *fakeSender) Send(to, subject, text, html, attachPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.fails > 0 {
		f.fails--
		return errors.New("smtp 421")
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func rawJob(t *testing.T, j EmailJob) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(j)
	require.NoError(t, err)
	return b
}

func quickWorker(s Sender) *EmailWorker {
	w := NewEmailWorker(s, infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 10}))
	w.backoff = time.Millisecond
	return w
}

// ── Dispatcher ───────────────────────────────────────────────────────────────

func TestDispatcher_EnqueueEmail(t *testing.T) {
	rdb := newRedis(t)
	d := NewDispatcher(rdb)
	ctx := context.Background()

	require.NoError(t, d.EnqueueEmail(ctx, EmailJob{To: "ana@museo.test", Subject: "Nuevo requerimiento"}))
	n, err := d.QueueLength(ctx, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	raw, err := rdb.RPop(ctx, QueueEmail).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobTypeEmail, job.Type)
	var payload EmailJob
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "ana@museo.test", payload.To)
}

// ── Email worker ─────────────────────────────────────────────────────────────

func TestEmailWorker_RetriesThenSucceeds(t *testing.T) {
	s := &fakeSender{fails: 2}
	attempts, err := quickWorker(s).Process(context.Background(), rawJob(t, EmailJob{To: "a@b.c", Subject: "x"}))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, s.count())
}

func TestEmailWorker_GivesUp(t *testing.T) {
	s := &fakeSender{fails: 10}
	attempts, err := quickWorker(s).Process(context.Background(), rawJob(t, EmailJob{To: "a@b.c"}))
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestEmailWorker_DisabledAndEmptyRecipient(t *testing.T) {
	s := &fakeSender{err: infra.ErrMailerDisabled}
	_, err := quickWorker(s).Process(context.Background(), rawJob(t, EmailJob{To: "a@b.c"}))
	assert.NoError(t, err, "SMTP disabled drops the job")

	_, err = quickWorker(&fakeSender{}).Process(context.Background(), rawJob(t, EmailJob{Subject: "sin destinatario"}))
	assert.NoError(t, err)

	_, err = quickWorker(&fakeSender{}).Process(context.Background(), json.RawMessage(`{`))
	assert.Error(t, err)
}

// ── Pool + DLQ ───────────────────────────────────────────────────────────────

func TestPool_ProcessesAndDeadLetters(t *testing.T) {
	rdb := newRedis(t)
	d := NewDispatcher(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{}
	pool := NewPool(rdb)
	pool.popWait = 50 * time.Millisecond
	pool.Register(JobTypeEmail, quickWorker(sender))

	require.NoError(t, d.EnqueueEmail(ctx, EmailJob{To: "ok@museo.test"}))
	// unknown job types and broken envelopes go straight to the DLQ
	require.NoError(t, d.enqueue(ctx, QueueEmail, "pdf", map[string]string{"id": "1"}))
	require.NoError(t, rdb.LPush(ctx, QueueEmail, "not json").Err())

	pool.Start(ctx, 2)

	require.Eventually(t, func() bool {
		n, _ := DLQLength(ctx, rdb, QueueEmail)
		return sender.count() == 1 && n == 2
	}, 5*time.Second, 20*time.Millisecond)

	entries, err := DLQPeek(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	types := []string{entries[0].JobType, entries[1].JobType}
	assert.ElementsMatch(t, []string{"pdf", "unknown"}, types)
	for _, e := range entries {
		assert.Equal(t, QueueEmail, e.OriginalQueue)
		assert.NotEmpty(t, e.Reason)
	}

	cancel()
	pool.Wait()
}

func TestPool_FailedJobRecordsAttempts(t *testing.T) {
	rdb := newRedis(t)
	pool := NewPool(rdb)
	pool.Register(JobTypeEmail, quickWorker(&fakeSender{fails: 99}))

	raw, err := json.Marshal(Job{Type: JobTypeEmail, Payload: rawJob(t, EmailJob{To: "x@y.z"})})
	require.NoError(t, err)
	pool.process(context.Background(), QueueEmail, string(raw))

	entries, err := DLQPeek(context.Background(), rdb, QueueEmail, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Equal(t, "smtp 421", entries[0].Reason)
}

func TestDLQRequeue_MovesOldestBack(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	for _, to := range []string{"first@museo.test", "second@museo.test"} {
		SendToDLQ(ctx, rdb, QueueEmail, JobTypeEmail, rawJob(t, EmailJob{To: to}), "smtp 421", 3)
	}

	n, err := DLQRequeue(ctx, rdb, QueueEmail, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)

	raw, err := rdb.RPop(ctx, QueueEmail).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobTypeEmail, job.Type)
	var payload EmailJob
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "first@museo.test", payload.To)

	n, err = DLQRequeue(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = DLQRequeue(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDLQRequeue_KeepsUndecodableEntry(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.LPush(ctx, DLQPrefix+QueueEmail, "garbage").Err())

	n, err := DLQRequeue(ctx, rdb, QueueEmail, 5)
	assert.Error(t, err)
	assert.Zero(t, n)
	left, _ := DLQLength(ctx, rdb, QueueEmail)
	assert.Equal(t, int64(1), left)
}
