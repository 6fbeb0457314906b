package insight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brokeometer/internal/budget"
	"brokeometer/internal/core"
	"brokeometer/internal/log"
	"brokeometer/internal/storage"
)

// Service generates an insight from the persisted records and stores it as
// the latest result. Overlapping refreshes are not deduplicated; the last
// one to finish wins.
type Service struct {
	store  storage.RecordStore
	gen    Generator
	now    func() time.Time
	logger *log.Logger
}

func NewService(store storage.RecordStore, gen Generator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Service{
		store:  store,
		gen:    gen,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentInsight),
	}
}

// Refresh generates and stores a new insight. An empty period means the
// current month.
func (s *Service) Refresh(ctx context.Context, period string) (Result, error) {
	now := s.now()
	if period == "" {
		period = core.PeriodLabel(now)
	}

	recs, err := budget.ReadRecords(ctx, s.store, now, s.logger)
	if err != nil {
		return Result{}, fmt.Errorf("read records: %w", err)
	}

	r := Result{
		Text:        s.gen.Generate(ctx, recs.Expenses, recs.Budget, period),
		Period:      period,
		GeneratedAt: s.now(),
	}
	if err := SaveResult(ctx, s.store, r); err != nil {
		return Result{}, err
	}

	s.logger.InfoContext(ctx, "Insight refreshed", log.FieldPeriod, period, "expenses", len(recs.Expenses))
	return r, nil
}

// Latest returns the stored insight.
func (s *Service) Latest(ctx context.Context) (Result, error) {
	return LatestResult(ctx, s.store)
}

// Requester asks for an insight refresh without waiting for it.
type Requester interface {
	RequestRefresh(ctx context.Context, period string) error
}

// AsyncRefresher runs refreshes in background goroutines of this process.
type AsyncRefresher struct {
	svc     *Service
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ Requester = (*AsyncRefresher)(nil)

func NewAsyncRefresher(svc *Service, timeout time.Duration) *AsyncRefresher {
	return &AsyncRefresher{svc: svc, timeout: timeout}
}

// RequestRefresh starts a refresh detached from ctx's cancellation so it
// outlives the request that triggered it.
func (a *AsyncRefresher) RequestRefresh(ctx context.Context, period string) error {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		if _, err := a.svc.Refresh(ctx, period); err != nil {
			a.svc.logger.ErrorContext(ctx, "Background insight refresh failed", log.FieldError, err)
		}
	}()
	return nil
}

// Wait blocks until every started refresh has finished.
func (a *AsyncRefresher) Wait() {
	a.wg.Wait()
}
