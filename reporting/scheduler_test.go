package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"orderflow/auditlog"
)

type fakeLocker struct {
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func newTestScheduler(store *fakeStore, n *fakeNotifier, locker LeaseLocker) *Scheduler {
	reporter := NewReporter(store, n, 10*time.Minute)
	return NewScheduler(reporter, locker, "* * * * *", time.Hour)
}

func TestRunTickLeaseWinnerRuns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{records: []auditlog.Record{record("o1", 10, now.Add(-time.Minute))}}
	n := &fakeNotifier{}
	scheduler := newTestScheduler(store, n, newFakeLocker())

	scheduler.RunTick(context.Background(), now)

	assert.Len(t, n.subjects, 1)
}

func TestRunTickSameTickRunsOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{records: []auditlog.Record{record("o1", 10, now.Add(-time.Minute))}}
	n := &fakeNotifier{}
	locker := newFakeLocker()

	// Two replicas firing on the same tick share one lease key.
	first := newTestScheduler(store, n, locker)
	second := newTestScheduler(store, n, locker)

	first.RunTick(context.Background(), now)
	second.RunTick(context.Background(), now)

	assert.Len(t, n.subjects, 1)
}

func TestRunTickDifferentTicksBothRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)
	store := &fakeStore{records: []auditlog.Record{record("o1", 10, now.Add(-time.Minute))}}
	n := &fakeNotifier{}
	scheduler := newTestScheduler(store, n, newFakeLocker())

	scheduler.RunTick(context.Background(), now)
	scheduler.RunTick(context.Background(), later)

	assert.Len(t, n.subjects, 2)
}

func TestRunTickLockerFailureSkipsRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{records: []auditlog.Record{record("o1", 10, now.Add(-time.Minute))}}
	n := &fakeNotifier{}
	locker := newFakeLocker()
	locker.err = assert.AnError
	scheduler := newTestScheduler(store, n, locker)

	scheduler.RunTick(context.Background(), now)

	assert.Empty(t, n.subjects)
}

func TestLeaseKeyTruncatesToMinute(t *testing.T) {
	scheduler := newTestScheduler(&fakeStore{}, &fakeNotifier{}, newFakeLocker())

	a := scheduler.LeaseKey(time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC))
	b := scheduler.LeaseKey(time.Date(2026, 3, 1, 12, 0, 55, 0, time.UTC))
	c := scheduler.LeaseKey(time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
