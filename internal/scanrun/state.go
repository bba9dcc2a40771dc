package scanrun

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"twinfind/internal/logging"
	"twinfind/internal/progress"
)

// Level classifies a run message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one entry of the run log.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Path  string `json:"path,omitempty"`
}

// StageTiming records how long a named stage took.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
}

// State is the ToolRunState of one tool invocation.
type State struct {
	runID  string
	tool   string
	logger *slog.Logger

	mu         sync.Mutex
	status     progress.State
	startedAt  time.Time
	finishedAt time.Time
	stages     []StageTiming
	messages   []Message
	counters   map[string]int64
	finished   bool
}

// New starts a run log for tool. The logger receives a mirror of every
// warning and error.
func New(tool string, logger *slog.Logger) *State {
	id := uuid.NewString()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &State{
		runID:     id,
		tool:      tool,
		logger:    logging.WithContext(logging.WithRun(context.Background(), id, tool), logger),
		status:    progress.Idle,
		startedAt: time.Now(),
		counters:  make(map[string]int64),
	}
}

// Context tags ctx with the run identity so loggers outside the run, such as
// the shared cache, can attribute their records to it.
func (s *State) Context(ctx context.Context) context.Context {
	return logging.WithRun(ctx, s.runID, s.tool)
}

func (s *State) RunID() string { return s.runID }

func (s *State) Tool() string { return s.tool }

// Logger returns the run-scoped logger.
func (s *State) Logger() *slog.Logger { return s.logger }

func (s *State) append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.messages = append(s.messages, msg)
}

// Infof records an informational message.
func (s *State) Infof(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.append(Message{Level: LevelInfo, Text: text})
	s.logger.Info(text)
}

// Skip records an informational message about one path that was left out
// on purpose (policy, not failure).
func (s *State) Skip(path, reason string) {
	s.append(Message{Level: LevelInfo, Text: reason, Path: path})
	s.logger.Debug("file skipped", logging.String(logging.FieldPath, path), logging.String("reason", reason))
}

// Warn records a per-item recoverable failure: path is excluded and the run
// continues.
func (s *State) Warn(path, eventType string, err error) {
	text := eventType
	if err != nil {
		text = err.Error()
	}
	s.append(Message{Level: LevelWarning, Text: text, Path: path})
	logging.WarnWithContext(s.logger, "file excluded",
		eventType,
		logging.String(logging.FieldPath, path),
		logging.Error(err))
}

// Errorf records a run-level error that did not abort the run.
func (s *State) Errorf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.append(Message{Level: LevelError, Text: text})
	s.logger.Error(text)
}

// Add bumps a named counter.
func (s *State) Add(counter string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counter] += n
}

// Counter returns a named counter value.
func (s *State) Counter(counter string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counter]
}

// Counters returns a copy of all counters.
func (s *State) Counters() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// Stage starts timing a named stage; call the returned func when it ends.
func (s *State) Stage(name string) func() {
	start := time.Now()
	s.logger.Debug("stage started", logging.String(logging.FieldStage, name))
	return func() {
		d := time.Since(start)
		s.mu.Lock()
		s.stages = append(s.stages, StageTiming{Name: name, Duration: d})
		s.mu.Unlock()
		s.logger.Debug("stage finished", logging.String(logging.FieldStage, name), logging.Duration("elapsed", d))
	}
}

// Finish seals the state with a terminal status. Later calls are ignored.
func (s *State) Finish(status progress.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.status = status
	s.finishedAt = time.Now()
	s.finished = true
	s.logger.Info("run finished",
		logging.String("status", status.String()),
		logging.Duration("elapsed", s.finishedAt.Sub(s.startedAt)),
		logging.Int("warnings", s.countLocked(LevelWarning)))
}

// SetStatus mirrors a non-terminal lifecycle state.
func (s *State) SetStatus(status progress.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.status = status
	}
}

func (s *State) Status() progress.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Cancelled reports whether the run ended by cancellation.
func (s *State) Cancelled() bool { return s.Status() == progress.Cancelled }

// Elapsed returns the run duration, or the time since start while running.
func (s *State) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.finishedAt.Sub(s.startedAt)
	}
	return time.Since(s.startedAt)
}

func (s *State) StartedAt() time.Time { return s.startedAt }

// Stages returns the recorded stage timings in completion order.
func (s *State) Stages() []StageTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stages)
}

// Messages returns the full message log.
func (s *State) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// MessagesAt returns messages of one level.
func (s *State) MessagesAt(level Level) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

func (s *State) countLocked(level Level) int {
	n := 0
	for _, m := range s.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Summary is the serializable view of a finished State.
type Summary struct {
	RunID      string           `json:"run_id"`
	Tool       string           `json:"tool"`
	Status     progress.State   `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
	Stages     []StageTiming    `json:"stages"`
	Counters   map[string]int64 `json:"counters"`
	Messages   []Message        `json:"messages"`
}

// Summary snapshots the state for reporting.
func (s *State) Summary() Summary {
	return Summary{
		RunID:      s.runID,
		Tool:       s.tool,
		Status:     s.Status(),
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAtValue(),
		Elapsed:    s.Elapsed(),
		Stages:     s.Stages(),
		Counters:   s.Counters(),
		Messages:   s.Messages(),
	}
}

func (s *State) finishedAtValue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// Common counter names.
const (
	CounterFound     = "files_found"
	CounterEligible  = "files_eligible"
	CounterChecked   = "files_checked"
	CounterExcluded  = "files_excluded"
	CounterCacheHits = "cache_hits"
	CounterGroups    = "groups"
	CounterInGroups  = "files_in_groups"
	CounterLostBytes = "duplicate_bytes"
)
