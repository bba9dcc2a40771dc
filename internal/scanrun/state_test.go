package scanrun

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"twinfind/internal/entry"
	"twinfind/internal/logging"
	"twinfind/internal/progress"
)

func TestStateRecordsMessagesByLevel(t *testing.T) {
	s := New("dupes", nil)
	s.Infof("scanning %d roots", 2)
	s.Warn("/a", "hash_read_failed", errors.New("permission denied"))
	s.Skip("/b", "same size as another image")
	s.Errorf("cache unavailable")

	if got := len(s.MessagesAt(LevelWarning)); got != 1 {
		t.Fatalf("warnings = %d, want 1", got)
	}
	warn := s.MessagesAt(LevelWarning)[0]
	if warn.Path != "/a" || warn.Text != "permission denied" {
		t.Fatalf("unexpected warning %+v", warn)
	}
	if got := len(s.MessagesAt(LevelInfo)); got != 2 {
		t.Fatalf("infos = %d, want 2", got)
	}
	if len(s.Messages()) != 4 {
		t.Fatalf("messages = %d, want 4", len(s.Messages()))
	}
	if s.RunID() == "" || s.Tool() != "dupes" {
		t.Fatalf("missing identity: %q %q", s.RunID(), s.Tool())
	}
}

func TestStateCountersAreConcurrencySafe(t *testing.T) {
	s := New("images", nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(CounterChecked, 1)
			s.Warn("/x", "decode_failed", nil)
		}()
	}
	wg.Wait()
	if s.Counter(CounterChecked) != 50 {
		t.Fatalf("counter = %d, want 50", s.Counter(CounterChecked))
	}
	if len(s.MessagesAt(LevelWarning)) != 50 {
		t.Fatalf("warnings = %d, want 50", len(s.MessagesAt(LevelWarning)))
	}
}

func TestFinishSealsState(t *testing.T) {
	s := New("music", nil)
	end := s.Stage("fingerprint")
	time.Sleep(time.Millisecond)
	end()
	s.SetStatus(progress.Comparing)
	s.Finish(progress.Cancelled)
	s.Finish(progress.Completed)
	s.SetStatus(progress.Collecting)
	s.Infof("late message")

	if !s.Cancelled() {
		t.Fatalf("status = %v, want cancelled", s.Status())
	}
	if len(s.Messages()) != 0 {
		t.Fatal("messages after Finish must be dropped")
	}
	elapsed := s.Elapsed()
	time.Sleep(2 * time.Millisecond)
	if s.Elapsed() != elapsed {
		t.Fatal("elapsed must be frozen after Finish")
	}
	sum := s.Summary()
	if len(sum.Stages) != 1 || sum.Stages[0].Name != "fingerprint" || sum.Stages[0].Duration <= 0 {
		t.Fatalf("unexpected stages %+v", sum.Stages)
	}
	if sum.Status != progress.Cancelled || sum.FinishedAt.IsZero() {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestCollectCountsPlainSources(t *testing.T) {
	var updates []progress.Update
	tracker := progress.NewTracker("dupes", 3, progress.SinkFunc(func(u progress.Update) {
		updates = append(updates, u)
	}))
	s := New("dupes", logging.NewNop())

	records, err := s.Collect(context.Background(), entry.Records{
		{Path: "/a", Size: 1}, {Path: "/b", Size: 2},
	}, tracker)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 2 || s.Counter(CounterEligible) != 2 {
		t.Fatalf("unexpected collect result: %d records, %d eligible", len(records), s.Counter(CounterEligible))
	}
	if s.Status() != progress.Collecting {
		t.Fatalf("expected collecting, got %v", s.Status())
	}

	s.Compare(tracker)
	s.Complete(tracker)
	if s.Status() != progress.Completed || tracker.State() != progress.Completed {
		t.Fatalf("expected completed, got run=%v tracker=%v", s.Status(), tracker.State())
	}
	if last := updates[len(updates)-1]; last.State != progress.Completed {
		t.Fatalf("last update should be completed, got %v", last.State)
	}
}

func TestCollectPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracker := progress.NewTracker("dupes", 3, nil)
	s := New("dupes", nil)
	if _, err := s.Collect(ctx, entry.Records{{Path: "/a"}}, tracker); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	s.Abort(tracker)
	if !s.Cancelled() {
		t.Fatal("expected cancelled run")
	}
	if len(s.MessagesAt(LevelInfo)) != 1 {
		t.Fatalf("expected cancellation message, got %+v", s.Messages())
	}
}

func TestContextCarriesRunIdentity(t *testing.T) {
	s := New("images", logging.NewNop())
	id, tool, ok := logging.RunFromContext(s.Context(context.Background()))
	if !ok || id != s.RunID() || tool != "images" {
		t.Fatalf("expected run %s/images in context, got %q %q %v", s.RunID(), id, tool, ok)
	}
}
