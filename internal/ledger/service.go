// Package ledger records register activity: cash sales into the open period,
// credit sales and their receivables, abonos, extra incomes, and the closing
// that seals the open period.
package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"joyeria/pos/internal/cache"
)

const summaryCacheKey = "register:day-summary"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Service bundles the register operations over one database. The closing
// guard and summary generation are process-local: one Service per store.
type Service struct {
	db         *sqlx.DB
	clock      Clock
	log        *zap.Logger
	cache      cache.Cache
	summaryTTL time.Duration

	closing atomic.Bool

	// summaryMu orders cache stores against invalidations; summaryGen counts
	// committed writes so a summary read before a write is never cached after it.
	summaryMu  sync.Mutex
	summaryGen uint64
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithCache memoizes the day summary in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.summaryTTL = ttl
	}
}

// NewService constructs a Service.
func NewService(db *sqlx.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		clock: ClockFunc(time.Now),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withTx runs fn in a transaction. Any error from fn rolls the whole
// transaction back.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fatal(op+": begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("rollback failed", zap.String("op", op), zap.Error(rbErr))
		}
		return fatal(op, err)
	}
	if err := tx.Commit(); err != nil {
		return fatal(op+": commit", err)
	}
	return nil
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	s.summaryGen++
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		s.log.Warn("failed to invalidate day summary", zap.Error(err))
	}
}

func (s *Service) summaryGeneration() uint64 {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	return s.summaryGen
}

func (s *Service) cachedSummary(ctx context.Context, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, ok, err := s.cache.Get(ctx, summaryCacheKey)
	if err != nil {
		s.log.Warn("failed to read cached day summary", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// storeSummary caches v unless a write committed since generation gen.
func (s *Service) storeSummary(ctx context.Context, gen uint64, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	if gen != s.summaryGen {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey, raw, s.summaryTTL); err != nil {
		s.log.Warn("failed to cache day summary", zap.Error(err))
	}
}
