package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostBreaker_Transitions(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newHostBreaker(2, time.Minute)
	b.now = func() time.Time { return clock }

	assert.True(t, b.allow())
	b.record(false)
	assert.Equal(t, breakerClosed, b.current())
	b.record(false)
	assert.Equal(t, breakerOpen, b.current())
	assert.False(t, b.allow())

	clock = clock.Add(time.Minute)
	assert.True(t, b.allow())
	assert.Equal(t, breakerHalfOpen, b.current())
	assert.False(t, b.allow(), "only one trial request in flight")

	b.record(false)
	assert.Equal(t, breakerOpen, b.current())

	clock = clock.Add(time.Minute)
	require.True(t, b.allow())
	b.record(true)
	assert.Equal(t, breakerClosed, b.current())
	assert.True(t, b.allow())
}

func TestHostBreaker_SuccessResetsCount(t *testing.T) {
	b := newHostBreaker(2, time.Minute)
	b.record(false)
	b.record(true)
	b.record(false)
	assert.Equal(t, breakerClosed, b.current())
}

func TestHostBreaker_Abandon(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newHostBreaker(1, time.Second)
	b.now = func() time.Time { return clock }

	b.record(false)
	clock = clock.Add(time.Second)
	require.True(t, b.allow())
	b.abandon()
	assert.Equal(t, breakerOpen, b.current())
	assert.True(t, b.allow(), "cooldown already elapsed")
}

func TestBreakerState_String(t *testing.T) {
	tests := []struct {
		state breakerState
		want  string
	}{
		{breakerClosed, "closed"},
		{breakerOpen, "open"},
		{breakerHalfOpen, "half-open"},
		{breakerState(9), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestDownload_BreakerSkipsFailingHost(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newTestFetcher()
	f.opts.MaxRetries = 1
	f.opts.BreakerThreshold = 2

	for range 2 {
		_, err := f.Download(context.Background(), srv.URL+"/a.zip")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrHostUnavailable))
	}

	_, err := f.Download(context.Background(), srv.URL+"/b.zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHostUnavailable))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDownload_BreakerDisabled(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher()
	f.opts.MaxRetries = 1
	f.opts.BreakerThreshold = -1

	for range 4 {
		_, err := f.Download(context.Background(), srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, int32(4), attempts.Load())
	assert.Nil(t, f.breakerFor("anything"))
}
