package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentPreviewMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{preview: func(_ context.Context, id string) (Preview, error) {
		<-release
		return Preview{SessionID: id}, nil
	}}
	svc := NewService(backend, WithPreviewCache(NewPreviewCache(time.Minute)))

	var wg sync.WaitGroup
	results := make([]Preview, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.Preview(context.Background(), "s1", false)
			assert.NoError(t, err)
			results[i] = p
		}()
	}

	require.Eventually(t, func() bool { return backend.previewCalls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, backend.previewCalls.Load())
	for _, p := range results {
		assert.Equal(t, "s1", p.SessionID)
	}
}

func TestWritesInvalidateCachedPreview(t *testing.T) {
	backend := &fakeBackend{
		preview: func(_ context.Context, id string) (Preview, error) {
			return Preview{SessionID: id}, nil
		},
		claim: func(context.Context, string, string, string) (ClaimResult, error) {
			return ClaimResult{ParticipantID: "open-1"}, nil
		},
	}
	svc := NewService(backend, WithPreviewCache(NewPreviewCache(time.Minute)))
	ctx := context.Background()

	_, err := svc.Preview(ctx, "s1", false)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "s1", "Bob", "")
	require.NoError(t, err)
	_, err = svc.Preview(ctx, "s1", false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, backend.previewCalls.Load())

	require.NoError(t, svc.SetReady(ctx, "s1"))
	_, err = svc.Preview(ctx, "s1", false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, backend.previewCalls.Load())
}

func TestPreviewOverlappingWriteIsNotCached(t *testing.T) {
	fetched := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	backend := &fakeBackend{
		preview: func(_ context.Context, id string) (Preview, error) {
			calls++
			if calls == 1 {
				close(fetched)
				<-release
				return Preview{SessionID: id, ClaimedCount: 1}, nil
			}
			return Preview{SessionID: id, ClaimedCount: 2}, nil
		},
		claim: func(context.Context, string, string, string) (ClaimResult, error) {
			return ClaimResult{ParticipantID: "open-1"}, nil
		},
	}
	cache := NewPreviewCache(time.Minute)
	svc := NewService(backend, WithPreviewCache(cache))
	ctx := context.Background()

	done := make(chan Preview)
	go func() {
		p, err := svc.Preview(ctx, "s1", false)
		assert.NoError(t, err)
		done <- p
	}()

	// The read is in flight with the pre-claim state when the claim lands.
	<-fetched
	_, err := svc.Claim(ctx, "s1", "Bob", "")
	require.NoError(t, err)
	close(release)

	stale := <-done
	assert.Equal(t, 1, stale.ClaimedCount)
	assert.Zero(t, cache.Len())

	p, err := svc.Preview(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ClaimedCount)
	assert.EqualValues(t, 2, backend.previewCalls.Load())

	_, ok := cache.Get("s1")
	assert.True(t, ok)
}
