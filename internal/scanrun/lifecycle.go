package scanrun

import (
	"context"

	"twinfind/internal/entry"
	"twinfind/internal/progress"
)

// Attacher is implemented by sources that report into a run while they
// produce records.
type Attacher interface {
	Attach(run *State, tracker *progress.Tracker)
}

// Collect moves the run into Collecting and reads every record from src.
func (s *State) Collect(ctx context.Context, src entry.Source, tracker *progress.Tracker) ([]entry.FileRecord, error) {
	s.SetStatus(progress.Collecting)
	tracker.Transition(progress.Collecting)
	tracker.StartStage(0, "collect", 0)
	if a, ok := src.(Attacher); ok {
		a.Attach(s, tracker)
	}

	done := s.Stage("collect")
	records, err := src.Records(ctx)
	done()
	if err != nil {
		return nil, err
	}
	if s.Counter(CounterEligible) == 0 {
		s.Add(CounterEligible, int64(len(records)))
	}
	return records, nil
}

// Compare moves the run into Comparing.
func (s *State) Compare(tracker *progress.Tracker) {
	s.SetStatus(progress.Comparing)
	tracker.Transition(progress.Comparing)
}

// Complete seals the run as Completed.
func (s *State) Complete(tracker *progress.Tracker) {
	tracker.Transition(progress.Completed)
	s.Finish(progress.Completed)
}

// Abort seals the run as Cancelled.
func (s *State) Abort(tracker *progress.Tracker) {
	s.Infof("scan cancelled")
	tracker.Transition(progress.Cancelled)
	s.Finish(progress.Cancelled)
}
