package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/upstream"
)

type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	items   []models.ReportRequest
	token   string
	filters upstream.ListFilters
}

func (f *countingFetcher) ListRequests(ctx context.Context, token string, filters upstream.ListFilters) ([]models.ReportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.token = token
	f.filters = filters
	return f.items, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerRefreshesSnapshot(t *testing.T) {
	fetcher := &countingFetcher{
		items: []models.ReportRequest{{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusPending}},
	}
	poller := NewReportPoller(fetcher, nil, func() string { return "svc-token" }, 10*time.Millisecond, nil)

	poller.Start(context.Background())
	defer poller.Stop()

	require.Eventually(t, func() bool {
		snapshot, fetched := poller.Snapshot()
		return len(snapshot) == 1 && !fetched.IsZero()
	}, time.Second, 5*time.Millisecond)

	snapshot, _ := poller.Snapshot()
	assert.Equal(t, "r-1", snapshot[0].ID)
	assert.Equal(t, "svc-token", fetcher.token)
	assert.Equal(t, models.ReportStatusAll, fetcher.filters.Status)
}

func TestPollerFetchesUpstreamAndWarmsCache(t *testing.T) {
	repo := &memoryCacheRepo{}
	cacheService := NewCacheService(repo, nil, time.Minute, nil, true)

	// A stale cached list must not satisfy the tick; the poller always goes
	// to the fetcher and overwrites the entry with what it got back.
	require.NoError(t, cacheService.Set(context.Background(), allRequestsCacheKey,
		[]models.ReportRequest{{ID: "stale", Status: models.ReportStatusPending}}, 0))

	fetcher := &countingFetcher{
		items: []models.ReportRequest{{ID: "r-2", StudentID: "s-2", Status: models.ReportStatusApproved}},
	}
	poller := NewReportPoller(fetcher, cacheService, nil, time.Minute, nil)
	poller.refresh(context.Background())

	assert.Equal(t, 1, fetcher.callCount(), "tick reaches upstream despite the cached entry")

	var cached []models.ReportRequest
	hit, err := cacheService.Get(context.Background(), allRequestsCacheKey, &cached)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, cached, 1)
	assert.Equal(t, "r-2", cached[0].ID)
}

func TestPollerStopHaltsPolling(t *testing.T) {
	fetcher := &countingFetcher{}
	poller := NewReportPoller(fetcher, nil, nil, 5*time.Millisecond, nil)

	poller.Start(context.Background())
	require.Eventually(t, func() bool { return fetcher.callCount() >= 2 }, time.Second, time.Millisecond)

	poller.Stop()
	after := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fetcher.callCount(), "no fetches after Stop returns")

	// Stop is idempotent.
	poller.Stop()
}

func TestPollerDiscardsResultAfterCancel(t *testing.T) {
	fetcher := &countingFetcher{
		items: []models.ReportRequest{{ID: "late", StudentID: "s-9"}},
	}
	poller := NewReportPoller(fetcher, nil, nil, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	poller.refresh(ctx)

	snapshot, fetched := poller.Snapshot()
	assert.Empty(t, snapshot, "an in-flight result must not land after cancellation")
	assert.True(t, fetched.IsZero())
}
