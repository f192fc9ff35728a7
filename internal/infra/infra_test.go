package infra

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Circuit breaker ──────────────────────────────────────────────────────────

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	boom := errors.New("smtp down")
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errors.New("x") })
	now = now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return errors.New("still down") })
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	assert.Equal(t, DefaultCBConfig(), cb.cfg)
}

// ── Local storage ────────────────────────────────────────────────────────────

func TestLocalStorage_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "uploads"), "/uploads/")
	require.NoError(t, err)

	f, err := s.Save(context.Background(), "../Cotización final.pdf", strings.NewReader("contenido"))
	require.NoError(t, err)
	assert.Equal(t, "../Cotización final.pdf", f.Name)
	assert.Equal(t, int64(len("contenido")), f.Size)
	assert.True(t, strings.HasPrefix(f.URL, "/uploads/"), f.URL)
	assert.NotContains(t, f.URL, " ")
	assert.Equal(t, s.BaseDir(), filepath.Dir(f.Path), "name is confined to the base dir")

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(data))

	require.NoError(t, s.Remove(f.Path))
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, s.Remove(f.Path), "missing file is tolerated")
	assert.NoError(t, s.Remove(""))
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

// ── PDF ──────────────────────────────────────────────────────────────────────

func TestRenderGroupSummary(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	r := NewPDFRenderer(s)

	summary := GroupSummary{
		GroupID:      "3f2a9c10-0000-4000-8000-000000000000",
		CreatorName:  "Ana Núñez",
		CreatorEmail: "ana@museo.test",
		CreatedAt:    time.Now(),
		Items: []GroupSummaryItem{
			{Title: "Vitrina", Description: strings.Repeat("larga ", 40), Area: "Curaduría", Amount: decimal.NewFromInt(1500)},
			{Title: "Iluminación", Area: "Montaje", Amount: decimal.RequireFromString("320.50")},
		},
	}
	f, err := r.RenderGroupSummary(context.Background(), summary)
	require.NoError(t, err)
	assert.Contains(t, f.URL, "solicitud_grupal_3f2a9c10")

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}

// ── Redis ────────────────────────────────────────────────────────────────────

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewRedis("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer rdb.Close()
	assert.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())

	_, err = NewRedis("not a url")
	assert.Error(t, err)
}
