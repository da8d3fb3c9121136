package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fieldops/fieldtrack/config"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRefresher) RefreshSelected(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingRefresher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeSelection struct {
	mu     sync.Mutex
	userID int64
	date   string
}

func (s *fakeSelection) Selection() (int64, string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.date, 1
}

func (s *fakeSelection) set(userID int64, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.date = date
}

// userRecordingRefresher records the selected user at the time of each
// refresh, the way the real refresher reads the store's selection.
type userRecordingRefresher struct {
	mu    sync.Mutex
	sel   *fakeSelection
	users []int64
}

func (r *userRecordingRefresher) RefreshSelected(ctx context.Context) {
	userID, _, _ := r.sel.Selection()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func (r *userRecordingRefresher) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.users...)
}

func newTestScheduler(t *testing.T, interval time.Duration, r Refresher, sel SelectionSource) *Scheduler {
	t.Helper()
	s, err := NewScheduler(config.MustGetLogger(), &config.PollConfig{Interval: interval}, r, sel)
	assert.NoError(t, err)
	s.nowFunc = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return s
}

func waitForCount(t *testing.T, r *countingRefresher, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("refresher call count never reached %d (got %d)", want, r.count())
}

func waitForUser(t *testing.T, r *userRecordingRefresher, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, u := range r.seen() {
			if u == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never saw a refresh for user %d", want)
}

func TestNewSchedulerValidation(t *testing.T) {
	s, err := NewScheduler(nil, &config.PollConfig{Interval: time.Second}, &countingRefresher{}, &fakeSelection{})
	assert.Error(t, err)
	assert.Nil(t, s)

	s, err = NewScheduler(config.MustGetLogger(), &config.PollConfig{}, &countingRefresher{}, &fakeSelection{})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestArmRefreshesImmediatelyAndOnTicks(t *testing.T) {
	r := &countingRefresher{}
	s := newTestScheduler(t, 20*time.Millisecond, r, &fakeSelection{userID: 1, date: "2025-03-14"})
	defer s.Stop()

	s.Arm(context.Background())
	waitForCount(t, r, 3)
}

func TestArmSkipsHistoricalDate(t *testing.T) {
	r := &countingRefresher{}
	s := newTestScheduler(t, 10*time.Millisecond, r, &fakeSelection{userID: 1, date: "2024-12-25"})
	defer s.Stop()

	s.Arm(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.count(), "historical dates must not be polled")
}

func TestArmSkipsEmptySelection(t *testing.T) {
	r := &countingRefresher{}
	s := newTestScheduler(t, 10*time.Millisecond, r, &fakeSelection{})
	defer s.Stop()

	s.Arm(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.count())
}

func TestReArmStopsLoopForHistoricalDate(t *testing.T) {
	sel := &fakeSelection{userID: 1, date: "2025-03-14"}
	r := &countingRefresher{}
	s := newTestScheduler(t, 20*time.Millisecond, r, sel)
	defer s.Stop()

	s.Arm(context.Background())
	waitForCount(t, r, 1)

	sel.set(1, "2024-12-25")
	s.Arm(context.Background())
	settled := r.count()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, r.count(), "re-arming must stop the previous loop")
}

func TestReArmSwitchesToNewUser(t *testing.T) {
	sel := &fakeSelection{userID: 1, date: "2025-03-14"}
	r := &userRecordingRefresher{sel: sel}
	s, err := NewScheduler(config.MustGetLogger(), &config.PollConfig{Interval: 20 * time.Millisecond}, r, sel)
	assert.NoError(t, err)
	s.nowFunc = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	defer s.Stop()

	s.Arm(context.Background())
	waitForUser(t, r, 1)

	sel.set(2, "2025-03-14")
	s.Arm(context.Background())
	waitForUser(t, r, 2)

	// Every refresh after the switch targets the new user: Arm stops the old
	// loop before the selection can be read again.
	users := r.seen()
	idx := -1
	for i, u := range users {
		if u == 2 {
			idx = i
			break
		}
	}
	assert.GreaterOrEqual(t, idx, 0)
	for _, u := range users[idx:] {
		assert.Equal(t, int64(2), u, "old user's fetch must stop once re-armed")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := &countingRefresher{}
	s := newTestScheduler(t, 20*time.Millisecond, r, &fakeSelection{userID: 1, date: "2025-03-14"})

	s.Stop()
	s.Arm(context.Background())
	waitForCount(t, r, 1)
	s.Stop()
	s.Stop()

	settled := r.count()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, r.count())
}
