package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// RunRecord is one triggered operation's lifecycle entry.
type RunRecord struct {
	ID         string     `json:"id"`
	Operation  string     `json:"operation"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RunLog keeps recent run records in memory, newest first. Records do not
// survive a restart; this is the trigger shell's reporting surface, not an
// audit store.
type RunLog struct {
	mu      sync.RWMutex
	byID    map[string]*RunRecord
	order   []string
	maxSize int
}

const defaultRunLogSize = 100

func NewRunLog() *RunLog {
	return &RunLog{
		byID:    make(map[string]*RunRecord),
		maxSize: defaultRunLogSize,
	}
}

// Start registers a new running record and returns its id.
func (l *RunLog) Start(operation string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := &RunRecord{
		ID:        uuid.NewString(),
		Operation: operation,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	l.byID[rec.ID] = rec
	l.order = append([]string{rec.ID}, l.order...)

	if len(l.order) > l.maxSize {
		evicted := l.order[len(l.order)-1]
		l.order = l.order[:len(l.order)-1]
		delete(l.byID, evicted)
	}

	return rec.ID
}

// Finish closes a record with its outcome.
func (l *RunLog) Finish(id string, result any, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byID[id]
	if !ok {
		return
	}

	now := time.Now().UTC()
	rec.FinishedAt = &now
	rec.Result = result

	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		return
	}
	rec.Status = StatusSucceeded
}

// Get returns a copy of one record.
func (l *RunLog) Get(id string) (RunRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.byID[id]
	if !ok {
		return RunRecord{}, false
	}
	return *rec, true
}

// List returns copies of all records, newest first.
func (l *RunLog) List() []RunRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]RunRecord, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}
