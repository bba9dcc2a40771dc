package progress

// State is the lifecycle position of one tool run.
type State int

const (
	Idle State = iota
	Collecting
	Comparing
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Comparing:
		return "comparing"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled
}

// MarshalText renders the state name for JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canTransition enforces Idle -> Collecting -> Comparing -> terminal. Any
// non-terminal state may jump straight to Cancelled, and an empty input may
// finish without ever comparing.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case Cancelled:
		return true
	case Completed:
		return from != Idle
	default:
		return to > from
	}
}

// Update is one progress snapshot.
type Update struct {
	Tool       string `json:"tool"`
	State      State  `json:"state"`
	Stage      string `json:"stage,omitempty"`
	StageIndex int    `json:"stage_index"`
	StageCount int    `json:"stage_count"`
	Checked    int64  `json:"checked"`
	ToCheck    int64  `json:"to_check"`
}

// Percent returns Checked as a percentage of ToCheck, or -1 when the total is
// unknown.
func (u Update) Percent() float64 {
	if u.ToCheck <= 0 {
		return -1
	}
	p := float64(u.Checked) * 100 / float64(u.ToCheck)
	if p > 100 {
		p = 100
	}
	return p
}

// After reports whether u supersedes prev: later state, later stage, or more
// items checked within the same stage.
func (u Update) After(prev Update) bool {
	if u.State != prev.State {
		return u.State > prev.State
	}
	if u.StageIndex != prev.StageIndex {
		return u.StageIndex > prev.StageIndex
	}
	return u.Checked >= prev.Checked
}
