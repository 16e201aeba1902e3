package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/upstream"
)

type requestFetcher interface {
	ListRequests(ctx context.Context, token string, filters upstream.ListFilters) ([]models.ReportRequest, error)
}

// allRequestsCacheKey is the list-cache entry for the unfiltered approver
// view, shared with ReportService.ListRequests.
const allRequestsCacheKey = requestListCachePrefix + string(models.ReportStatusAll) + ":"

// ReportPoller keeps a warm snapshot of the approver request list by
// re-fetching it on a fixed interval, mirroring the 12s refresh the SPA
// views expect. Each tick goes straight to the upstream client, never
// through the list cache, and writes the fresh result back into both the
// in-memory snapshot and the cache. Cancellation is context-based with an
// explicit Stop contract; a result arriving after Stop is discarded before
// it is applied.
type ReportPoller struct {
	fetcher  requestFetcher
	cache    *CacheService
	token    func() string
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	snapshot []models.ReportRequest
	fetched  time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReportPoller constructs a poller. token supplies the service-account
// bearer token used for the background list fetch; cache may be nil when
// caching is disabled.
func NewReportPoller(fetcher requestFetcher, cache *CacheService, token func() string, interval time.Duration, logger *zap.Logger) *ReportPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 12 * time.Second
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &ReportPoller{
		fetcher:  fetcher,
		cache:    cache,
		token:    token,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins polling until Stop is called or the parent context ends.
func (p *ReportPoller) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.refresh(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (p *ReportPoller) Stop() {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
	})
}

// Snapshot returns the last fetched list and its fetch time.
func (p *ReportPoller) Snapshot() ([]models.ReportRequest, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot, p.fetched
}

func (p *ReportPoller) refresh(ctx context.Context) {
	requests, err := p.fetcher.ListRequests(ctx, p.token(), upstream.ListFilters{Status: models.ReportStatusAll})
	if err != nil {
		p.logger.Warn("request list poll failed", zap.Error(err))
		return
	}

	// The loop may have been stopped while the fetch was in flight.
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	p.snapshot = requests
	p.fetched = time.Now().UTC()
	p.mu.Unlock()

	_ = p.cache.Set(ctx, allRequestsCacheKey, requests, 0)
}
