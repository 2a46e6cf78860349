package repo

import "sync"

// SyncStep is the phase a full sync is currently in. The UI polls this to
// show provider-validation progress.
type SyncStep int

const (
	StepNone SyncStep = iota
	StepAuthenticate
	StepLive
	StepVOD
	StepSeries
)

func (s SyncStep) String() string {
	switch s {
	case StepAuthenticate:
		return "authenticate"
	case StepLive:
		return "live"
	case StepVOD:
		return "vod"
	case StepSeries:
		return "series"
	default:
		return "none"
	}
}

// SyncFailure records where a full sync stopped.
type SyncFailure struct {
	Step SyncStep
	Err  error
}

// stepTracker keeps the current step per account. On success the step clears
// to StepNone; on failure it stays on the failing phase so callers can show
// precise error context, and the failure itself is recorded separately.
type stepTracker struct {
	mu       sync.Mutex
	current  map[string]SyncStep
	failures map[string]SyncFailure
}

func newStepTracker() *stepTracker {
	return &stepTracker{
		current:  make(map[string]SyncStep),
		failures: make(map[string]SyncFailure),
	}
}

func (t *stepTracker) set(accountID string, step SyncStep) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current[accountID] = step
	delete(t.failures, accountID)
}

func (t *stepTracker) finish(accountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current[accountID] = StepNone
	delete(t.failures, accountID)
}

func (t *stepTracker) fail(accountID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[accountID] = SyncFailure{Step: t.current[accountID], Err: err}
}

func (t *stepTracker) step(accountID string) SyncStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current[accountID]
}

func (t *stepTracker) failure(accountID string) (SyncFailure, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.failures[accountID]
	return f, ok
}
