package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type notification struct {
	current int
	total   int
	message string
}

func recordingCallback(got *[]notification) Callback {
	return func(current, total int, message string) {
		*got = append(*got, notification{current, total, message})
	}
}

func TestTrackerSequence(t *testing.T) {
	var got []notification
	tr := NewTracker(recordingCallback(&got))

	tr.Start(3, "starting")
	tr.Increment("one")
	tr.Increment("two")
	tr.Increment("three")
	tr.Complete("complete")

	want := []notification{
		{0, 3, "starting"},
		{1, 3, "one"},
		{2, 3, "two"},
		{3, 3, "three"},
		{3, 3, "complete"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d notifications, expected %d: %v", len(got), len(want), got)
	}
	prev := -1
	for i, n := range got {
		if n != want[i] {
			t.Errorf("notification %d = %v, expected %v", i, n, want[i])
		}
		if n.current < prev {
			t.Errorf("current went backwards at %d: %d -> %d", i, prev, n.current)
		}
		prev = n.current
	}
}

func TestTrackerErrorSentinel(t *testing.T) {
	var got []notification
	tr := NewTracker(recordingCallback(&got))

	tr.Start(5, "starting")
	tr.Update(2, "working")
	tr.Error("disk full")

	last := got[len(got)-1]
	if last.current != -1 {
		t.Errorf("error notification current = %d, expected -1", last.current)
	}
	if !strings.HasPrefix(last.message, "ERROR: ") {
		t.Errorf("error message = %q, expected ERROR: prefix", last.message)
	}
	if tr.Active() {
		t.Error("tracker still active after Error")
	}
}

func TestUpdateInactiveIsNoop(t *testing.T) {
	var got []notification
	tr := NewTracker(recordingCallback(&got))

	tr.Update(5, "ignored")
	tr.Increment("ignored")

	if len(got) != 0 {
		t.Errorf("inactive tracker emitted %d notifications", len(got))
	}
	if tr.Current() != 0 {
		t.Errorf("Current() = %d after inactive updates, expected 0", tr.Current())
	}
}

func TestStartResetsState(t *testing.T) {
	tr := NewTracker(nil)
	tr.Start(10, "first")
	tr.Update(7, "")
	tr.Start(4, "second")

	if tr.Current() != 0 {
		t.Errorf("Current() = %d after restart, expected 0", tr.Current())
	}
	if tr.Total() != 4 {
		t.Errorf("Total() = %d after restart, expected 4", tr.Total())
	}
}

func TestPercentage(t *testing.T) {
	tr := NewTracker(nil)

	if p := tr.Percentage(); p != 0 {
		t.Errorf("Percentage() with zero total = %v, expected 0", p)
	}

	tr.Start(4, "")
	tr.Update(1, "")
	if p := tr.Percentage(); p != 25 {
		t.Errorf("Percentage() = %v, expected 25", p)
	}
}

func TestElapsedBeforeStart(t *testing.T) {
	tr := NewTracker(nil)
	if e := tr.Elapsed(); e != 0 {
		t.Errorf("Elapsed() before Start = %v, expected 0", e)
	}
}

func TestEstimatedRemaining(t *testing.T) {
	tr := NewTracker(nil)

	if _, ok := tr.EstimatedRemaining(); ok {
		t.Error("EstimatedRemaining() known before Start")
	}

	tr.Start(10, "")
	if _, ok := tr.EstimatedRemaining(); ok {
		t.Error("EstimatedRemaining() known at current == 0")
	}

	tr.Update(5, "")
	time.Sleep(10 * time.Millisecond)
	if _, ok := tr.EstimatedRemaining(); !ok {
		t.Error("EstimatedRemaining() unknown with progress underway")
	}

	tr.Complete("")
	if _, ok := tr.EstimatedRemaining(); ok {
		t.Error("EstimatedRemaining() known after completion")
	}
}

func TestPanickingCallbackIsSwallowed(t *testing.T) {
	calls := 0
	tr := NewTracker(func(current, total int, message string) {
		calls++
		panic("broken observer")
	})

	tr.Start(2, "starting")
	tr.Increment("one")
	tr.Complete("done")

	if calls != 3 {
		t.Errorf("callback invoked %d times, expected 3", calls)
	}
	if tr.Current() != 2 {
		t.Errorf("Current() = %d, expected 2", tr.Current())
	}
}

func TestConsoleTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewConsoleTracker(&buf)

	tr.Start(2, "starting")
	tr.Increment("a.txt")
	tr.Complete("done")

	out := buf.String()
	if !strings.Contains(out, "50.0%") {
		t.Errorf("output missing percentage: %q", out)
	}
	if !strings.Contains(out, "done") {
		t.Errorf("output missing completion message: %q", out)
	}

	buf.Reset()
	tr.Start(1, "starting")
	tr.Error("boom")
	if !strings.Contains(buf.String(), "ERROR: boom") {
		t.Errorf("output missing error: %q", buf.String())
	}
}
