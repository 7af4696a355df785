package status

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a controllable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAggregator_Eviction(t *testing.T) {
	agg := NewAggregator(WithCapacity(30))

	for i := 0; i < 1000; i++ {
		agg.RecordEvent("acc", fmt.Sprintf("event %d", i), SeverityInfo)
		if agg.Len() > 30 {
			t.Fatalf("log length %d exceeds capacity after %d events", agg.Len(), i+1)
		}
	}

	snap := agg.Snapshot()
	if len(snap.Events) != 30 {
		t.Fatalf("len(Events) = %d, want 30", len(snap.Events))
	}
	for i, e := range snap.Events {
		want := fmt.Sprintf("event %d", 970+i)
		if e.Message != want {
			t.Errorf("Events[%d] = %q, want %q", i, e.Message, want)
		}
	}
}

func TestAggregator_PartialFill(t *testing.T) {
	agg := NewAggregator(WithCapacity(5))
	agg.RecordEvent("", "one", SeverityInfo)
	agg.RecordEvent("a", "two", SeverityError)

	snap := agg.Snapshot()
	if len(snap.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(snap.Events))
	}
	if snap.Events[0].Message != "one" || snap.Events[1].Message != "two" {
		t.Errorf("unexpected order: %+v", snap.Events)
	}
	if snap.Events[1].Severity != SeverityError {
		t.Errorf("Severity = %v, want error", snap.Events[1].Severity)
	}
	if snap.Events[0].AccountID != "" {
		t.Errorf("process-wide event has AccountID %q", snap.Events[0].AccountID)
	}
}

func TestAggregator_ZeroCapacity(t *testing.T) {
	agg := NewAggregator(WithCapacity(0))
	if agg.Capacity() != 1 {
		t.Fatalf("Capacity = %d, want 1", agg.Capacity())
	}
	agg.RecordEvent("", "a", SeverityInfo)
	agg.RecordEvent("", "b", SeverityInfo)
	snap := agg.Snapshot()
	if len(snap.Events) != 1 || snap.Events[0].Message != "b" {
		t.Errorf("Events = %+v, want only b", snap.Events)
	}
}

func TestAggregator_Traffic(t *testing.T) {
	agg := NewAggregator()
	for _, n := range []int{10, 20, 30} {
		agg.AddTraffic(n)
	}
	if got := agg.TotalTraffic(); got != 60 {
		t.Errorf("TotalTraffic = %d, want 60", got)
	}

	agg.AddTraffic(-5)
	agg.AddTraffic(0)
	if got := agg.TotalTraffic(); got != 60 {
		t.Errorf("TotalTraffic after non-positive adds = %d, want 60", got)
	}
}

func TestAggregator_ConcurrentTraffic(t *testing.T) {
	agg := NewAggregator()

	const workers = 50
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			acc := fmt.Sprintf("acc-%d", id)
			for i := 0; i < perWorker; i++ {
				if i%2 == 0 {
					agg.AddTraffic(3)
				} else {
					agg.AddAccountTraffic(acc, 3)
				}
				agg.RecordEvent(acc, "frame", SeveritySuccess)
			}
		}(w)
	}

	// Concurrent reader
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		var last int64
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := agg.Snapshot()
			if snap.TotalTraffic < last {
				t.Errorf("traffic decreased: %d -> %d", last, snap.TotalTraffic)
				return
			}
			last = snap.TotalTraffic
			if len(snap.Events) > agg.Capacity() {
				t.Errorf("snapshot has %d events, capacity %d", len(snap.Events), agg.Capacity())
				return
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	want := int64(workers * perWorker * 3)
	if got := agg.TotalTraffic(); got != want {
		t.Errorf("TotalTraffic = %d, want %d", got, want)
	}

	snap := agg.Snapshot()
	var perAccount int64
	for _, a := range snap.Accounts {
		perAccount += a.Traffic
	}
	if perAccount != want/2 {
		t.Errorf("sum of account traffic = %d, want %d", perAccount, want/2)
	}
}

func TestAggregator_States(t *testing.T) {
	clock := newFakeClock()
	agg := NewAggregator(WithClock(clock.Now))

	agg.Register("b")
	agg.SetState("a", StateConnecting)
	clock.Advance(time.Second)
	agg.SetState("a", StateConnected)
	agg.SetState("a", StateTerminating)
	agg.SetState("a", StateDisconnected)
	agg.SetState("a", StateConnecting)

	snap := agg.Snapshot()
	if len(snap.Accounts) != 2 {
		t.Fatalf("len(Accounts) = %d, want 2", len(snap.Accounts))
	}
	a := snap.Accounts[0]
	if a.AccountID != "a" {
		t.Fatalf("Accounts not sorted: %+v", snap.Accounts)
	}
	if a.State != StateConnecting {
		t.Errorf("State = %s, want connecting", a.State)
	}
	if a.Connects != 1 {
		t.Errorf("Connects = %d, want 1", a.Connects)
	}
	if a.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", a.Restarts)
	}
	if !a.StateSince.Equal(clock.Now()) {
		t.Errorf("StateSince = %v, want %v", a.StateSince, clock.Now())
	}

	b := snap.Accounts[1]
	if b.State != StateDisconnected || b.Restarts != 0 {
		t.Errorf("registered account = %+v, want fresh disconnected", b)
	}
	if snap.ConnectedCount() != 0 {
		t.Errorf("ConnectedCount = %d, want 0", snap.ConnectedCount())
	}
}

func TestAggregator_Uptime(t *testing.T) {
	clock := newFakeClock()
	agg := NewAggregator(WithClock(clock.Now))

	clock.Advance(3723 * time.Second)

	snap := agg.Snapshot()
	if snap.Uptime != 3723*time.Second {
		t.Errorf("Uptime = %v, want 1h2m3s", snap.Uptime)
	}
	if got := FormatUptime(snap.Uptime); got != "01h 02m 03s" {
		t.Errorf("FormatUptime = %q, want %q", got, "01h 02m 03s")
	}
}

func TestAggregator_Sinks(t *testing.T) {
	var mu sync.Mutex
	var got []Entry

	agg := NewAggregator(WithSink(SinkFunc(func(e Entry) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})))

	var late int
	agg.AddSink(SinkFunc(func(Entry) { late++ }))

	agg.RecordEvent("x", "hello", SeverityWarning)
	agg.Eventf("x", SeverityError, "attempt %d/%d", 2, 5)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("sink received %d entries, want 2", len(got))
	}
	if got[1].Message != "attempt 2/5" {
		t.Errorf("Message = %q, want %q", got[1].Message, "attempt 2/5")
	}
	if late != 2 {
		t.Errorf("late sink received %d entries, want 2", late)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00h 00m 00s"},
		{-time.Second, "00h 00m 00s"},
		{59 * time.Second, "00h 00m 59s"},
		{61 * time.Minute, "01h 01m 00s"},
		{100 * time.Hour, "100h 00m 00s"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.in); got != tt.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
