// Package progress tracks long-running menu processing tasks and fans
// state changes out to subscribers. Everything lives in process memory:
// a restart loses progress, the persisted menu rows keep the result.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is the lifecycle of one tracked task.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// State is a point-in-time snapshot of one task. Values handed to
// subscribers and Get callers are copies; mutating them has no effect
// on the tracker.
type State struct {
	TaskID        string         `json:"task_id"`
	Status        Status         `json:"status"`
	Stage         string         `json:"stage"`
	Percent       float64        `json:"percent"`
	Message       string         `json:"message"`
	ItemCount     int            `json:"item_count"`
	ETASeconds    int            `json:"eta_seconds"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Error         string         `json:"error,omitempty"`
	StageMetadata map[string]any `json:"stage_metadata,omitempty"`
}

// Per-stage duration estimates in seconds, used for the initial ETA
// before any real progress exists.
var stageEstimates = []float64{
	2.0, // image processing
	3.5, // menu extraction
	1.0, // database writes
}

// perItemEstimate is the additional per-dish cost of image resolution.
const perItemEstimate = 0.3

// retention keeps completed tasks queryable before eviction.
const retention = 5 * time.Minute

// subscriberBuffer bounds each subscriber channel. A slow consumer
// loses the oldest events, never blocks the pipeline.
const subscriberBuffer = 16

// One message per progress decile, shown when an update carries none.
var loadingMessages = []string{
	"Reading your menu...",
	"Identifying dishes...",
	"Checking the image library...",
	"Matching dishes to photos...",
	"Searching for appetizing photos...",
	"Curating the best shots...",
	"Plating the matches...",
	"Generating missing dishes...",
	"Almost there...",
	"Finishing up...",
}

type task struct {
	state   State
	subs    map[int]chan State
	nextSub int
	evict   *time.Timer
}

// Tracker is safe for concurrent use; one mutex serializes all task
// mutation, which also gives each task a single writer ordering.
type Tracker struct {
	mu        sync.Mutex
	tasks     map[string]*task
	logger    zerolog.Logger
	retention time.Duration
	now       func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		tasks:     make(map[string]*task),
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// Start registers taskID with an initial ETA derived from the stage
// estimate table plus a per-item increment. Restarting an existing
// task resets its state and cancels any pending eviction.
func (t *Tracker) Start(taskID string, itemCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var estimate float64
	for _, s := range stageEstimates {
		estimate += s
	}
	estimate += perItemEstimate * float64(itemCount)

	now := t.now()
	existing := t.tasks[taskID]
	if existing != nil && existing.evict != nil {
		existing.evict.Stop()
		existing.evict = nil
	}

	tk := existing
	if tk == nil {
		tk = &task{subs: make(map[int]chan State)}
		t.tasks[taskID] = tk
	}
	tk.state = State{
		TaskID:        taskID,
		Status:        StatusProcessing,
		Stage:         "started",
		Percent:       0,
		Message:       loadingMessages[0],
		ItemCount:     itemCount,
		ETASeconds:    int(estimate + 0.5),
		StartedAt:     now,
		UpdatedAt:     now,
		StageMetadata: map[string]any{},
	}
	t.notifyLocked(tk)
	t.logger.Debug().Str("task_id", taskID).Int("items", itemCount).Msg("progress: tracking started")
}

// Update records stage and percent for taskID and notifies
// subscribers. Percent never moves backward. meta entries merge into
// the task's stage metadata. Updating an unknown task is a no-op.
func (t *Tracker) Update(taskID, stage string, percent float64, meta map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tk, ok := t.tasks[taskID]
	if !ok {
		t.logger.Debug().Str("task_id", taskID).Str("stage", stage).Msg("progress: update for unknown task")
		return
	}

	st := &tk.state
	if percent > st.Percent {
		st.Percent = percent
	}
	if percent > 100 {
		st.Percent = 100
	}
	st.Stage = stage
	st.UpdatedAt = t.now()
	st.Message = messageFor(st.Percent)
	if msg, ok := meta["message"].(string); ok && msg != "" {
		st.Message = msg
	}
	for k, v := range meta {
		if k == "message" {
			continue
		}
		st.StageMetadata[k] = v
	}

	if st.Percent > 0 && st.Percent < 100 {
		elapsed := st.UpdatedAt.Sub(st.StartedAt).Seconds()
		total := elapsed / (st.Percent / 100)
		if eta := int(total - elapsed + 0.5); eta >= 0 {
			st.ETASeconds = eta
		}
	}

	t.notifyLocked(tk)
}

// Complete marks the task finished. A nil err is success and forces
// percent to 100. The state stays queryable for the retention window,
// then the task is evicted and subscriber channels closed.
func (t *Tracker) Complete(taskID string, taskErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tk, ok := t.tasks[taskID]
	if !ok {
		t.logger.Debug().Str("task_id", taskID).Msg("progress: complete for unknown task")
		return
	}

	st := &tk.state
	st.UpdatedAt = t.now()
	st.ETASeconds = 0
	if taskErr != nil {
		st.Status = StatusFailed
		st.Error = taskErr.Error()
	} else {
		st.Status = StatusCompleted
		st.Percent = 100
		st.Message = "Done"
	}
	t.notifyLocked(tk)

	if tk.evict != nil {
		tk.evict.Stop()
	}
	tk.evict = time.AfterFunc(t.retention, func() { t.evict(taskID) })
}

func (t *Tracker) evict(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[taskID]
	if !ok {
		return
	}
	for id, ch := range tk.subs {
		close(ch)
		delete(tk.subs, id)
	}
	delete(t.tasks, taskID)
	t.logger.Debug().Str("task_id", taskID).Msg("progress: task evicted")
}

// Get returns a snapshot of the task state.
func (t *Tracker) Get(taskID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[taskID]
	if !ok {
		return State{}, false
	}
	return snapshot(&tk.state), true
}

// Subscribe returns a channel of state snapshots and an unsubscribe
// func. The channel is bounded; when a subscriber lags, the oldest
// pending event is dropped to make room. Subscribing to an unknown
// task yields an already-closed channel.
func (t *Tracker) Subscribe(taskID string) (<-chan State, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tk, ok := t.tasks[taskID]
	if !ok {
		ch := make(chan State)
		close(ch)
		return ch, func() {}
	}

	id := tk.nextSub
	tk.nextSub++
	ch := make(chan State, subscriberBuffer)
	tk.subs[id] = ch
	ch <- snapshot(&tk.state)

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if tk, ok := t.tasks[taskID]; ok {
			if c, live := tk.subs[id]; live {
				delete(tk.subs, id)
				close(c)
			}
		}
	}
	return ch, cancel
}

// notifyLocked fans the current state out to subscribers without ever
// blocking: a full channel drops its oldest event first.
func (t *Tracker) notifyLocked(tk *task) {
	st := snapshot(&tk.state)
	for _, ch := range tk.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func snapshot(st *State) State {
	out := *st
	out.StageMetadata = make(map[string]any, len(st.StageMetadata))
	for k, v := range st.StageMetadata {
		out.StageMetadata[k] = v
	}
	return out
}

func messageFor(percent float64) string {
	idx := int(percent / 10)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(loadingMessages) {
		idx = len(loadingMessages) - 1
	}
	return loadingMessages[idx]
}
