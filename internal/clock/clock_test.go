package clock

import (
	"reflect"
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(epoch)
	var got []string
	c.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	c.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })

	c.Advance(15 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("after 15ms got %v", got)
	}
	c.Advance(15 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("after 30ms got %v", got)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
	if want := epoch.Add(30 * time.Millisecond); !c.Now().Equal(want) {
		t.Fatalf("Now() = %v; want %v", c.Now(), want)
	}
}

func TestFake_NowInsideCallbackIsDeadline(t *testing.T) {
	c := NewFake(epoch)
	var seen time.Time
	c.AfterFunc(time.Second, func() { seen = c.Now() })
	c.Advance(time.Minute)
	if !seen.Equal(epoch.Add(time.Second)) {
		t.Fatalf("callback saw %v; want %v", seen, epoch.Add(time.Second))
	}
}

func TestFake_StopPreventsCallback(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("first Stop should report true")
	}
	if tm.Stop() {
		t.Fatalf("second Stop should report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestFake_StopAfterFireReportsFalse(t *testing.T) {
	c := NewFake(epoch)
	tm := c.AfterFunc(0, func() {})
	c.Advance(0)
	if tm.Stop() {
		t.Fatalf("Stop after fire should report false")
	}
}

func TestFake_CallbackSchedulesWithinWindow(t *testing.T) {
	c := NewFake(epoch)
	n := 0
	var tick func()
	tick = func() {
		n++
		if n < 3 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)
	c.Advance(5 * time.Second)
	if n != 3 {
		t.Fatalf("expected chained callbacks to run 3 times, got %d", n)
	}
}

func TestReal_AfterFuncFires(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("real timer did not fire")
	}
	if c.Now().IsZero() {
		t.Fatalf("Real().Now() returned zero time")
	}
}
