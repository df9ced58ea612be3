package reporting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// LeaseLocker claims a coordination key for a bounded time. TryAcquire
// returns true only for the first claimant of a key.
type LeaseLocker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) LeaseLocker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
}

// Scheduler runs the reporter on a cron schedule with at-most-one execution
// per tick across all replicas. The per-tick lease is never released early:
// it simply expires, so even a replica that starts late cannot rerun a tick
// another replica already claimed. The TTL therefore only has to exceed the
// worst-case run duration, which it does by a wide margin.
type Scheduler struct {
	reporter *Reporter
	locker   LeaseLocker
	cronSpec string
	leaseTTL time.Duration
	name     string
	cron     *cron.Cron
}

func NewScheduler(reporter *Reporter, locker LeaseLocker, cronSpec string, leaseTTL time.Duration) *Scheduler {
	return &Scheduler{
		reporter: reporter,
		locker:   locker,
		cronSpec: cronSpec,
		leaseTTL: leaseTTL,
		name:     "audit-report",
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cronSpec, func() {
		s.RunTick(ctx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("register report schedule %q: %w", s.cronSpec, err)
	}
	s.cron.Start()
	log.Printf("Report scheduler started (spec %q)", s.cronSpec)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunTick attempts the lease for this tick and runs the report only when it
// wins. Run errors are logged; the next tick is unaffected.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) {
	key := s.LeaseKey(now)

	acquired, err := s.locker.TryAcquire(ctx, key, s.leaseTTL)
	if err != nil {
		log.Printf("Report lease acquisition failed for %s: %v", key, err)
		return
	}
	if !acquired {
		log.Printf("Report tick %s already claimed by another instance", key)
		return
	}

	if err := s.reporter.Run(ctx, now); err != nil {
		log.Printf("Report run failed for %s: %v", key, err)
	}
}

// LeaseKey identifies a scheduled tick cluster-wide. Ticks are truncated to
// the minute, the finest granularity a cron spec can fire at.
func (s *Scheduler) LeaseKey(tick time.Time) string {
	return fmt.Sprintf("reporting:lease:%s:%s", s.name, tick.UTC().Truncate(time.Minute).Format("200601021504"))
}
