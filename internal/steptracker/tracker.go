// Package steptracker buffers StepRecords produced by the Agent loop and
// flushes them asynchronously to TaskStore/BlobStore, so a slow or fallible
// store never blocks the loop. Durability across a process restart is
// provided by an on-disk spill file: Append is synchronous with the spill
// write, so a step is never lost between "appended" and "stored", except
// the oldest unflushed step that Append drops when the buffer is full.
package steptracker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// pendingStep is one buffered/spilled unit of work: a StepRecord plus the
// raw screenshot bytes to upload, when the step carries one.
type pendingStep struct {
	TaskID     string        `json:"taskId"`
	Record     v1.StepRecord `json:"record"`
	Screenshot []byte        `json:"screenshot,omitempty"`
}

// Tracker buffers steps in memory, spills them to disk for durability, and
// flushes batches to TaskStore/BlobStore on a background goroutine. The
// buffer is bounded by cfg.BufferCapacity: once full, Append drops the
// oldest unflushed step rather than grow, emitting an OverflowEvent through
// overflowSink so the task loses no more than that one step of history.
type Tracker struct {
	cfg       config.StepTrackerConfig
	taskStore collab.TaskStore
	blobStore collab.BlobStore
	logger    *logger.Logger

	mu     sync.Mutex
	buffer []pendingStep
	spill  *spillFile

	overflowMu   sync.Mutex
	overflowSink func(v1.Event)

	wake    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New builds a Tracker and recovers any steps left in the spill file from a
// prior process's unclean shutdown into the in-memory buffer.
func New(cfg config.StepTrackerConfig, taskStore collab.TaskStore, blobStore collab.BlobStore, log *logger.Logger) (*Tracker, error) {
	spill, err := openSpill(cfg.SpillPath)
	if err != nil {
		return nil, err
	}
	recovered, err := spill.loadAll()
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		cfg:       cfg,
		taskStore: taskStore,
		blobStore: blobStore,
		logger:    log,
		buffer:    recovered,
		spill:     spill,
		wake:      make(chan struct{}, 1),
	}
	if len(recovered) > 0 {
		t.logger.Info("recovered spilled steps from prior run", zap.Int("count", len(recovered)))
	}
	return t, nil
}

// SetOverflowSink registers the callback Append uses to publish an
// OverflowEvent when it drops a step. Safe to call before or after Start;
// nil disables publication (the drop still happens, just silently).
func (t *Tracker) SetOverflowSink(sink func(v1.Event)) {
	t.overflowMu.Lock()
	defer t.overflowMu.Unlock()
	t.overflowSink = sink
}

// Start launches the background flusher. Safe to call once.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	t.wg.Add(1)
	go t.flushLoop(ctx)
}

// Append enqueues a step for asynchronous persistence. It is synchronous
// only with the spill write: once Append returns nil, the step is durable
// on disk even if the process is killed before the next flush. screenshot
// is the raw PNG bytes for a StepScreenshot record, nil otherwise.
//
// When the in-memory buffer is already at cfg.BufferCapacity, the oldest
// unflushed step is dropped to make room for record (the newest step is
// always retained) and an OverflowEvent is published for the dropped
// step's task.
func (t *Tracker) Append(record v1.StepRecord, screenshot []byte) error {
	p := pendingStep{TaskID: record.TaskID, Record: record, Screenshot: screenshot}
	if err := t.spill.append(p); err != nil {
		return apperrors.StoreErr("spill append failed", err)
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, p)

	var dropped *pendingStep
	if t.cfg.BufferCapacity > 0 && len(t.buffer) > t.cfg.BufferCapacity {
		dropped = &t.buffer[0]
		t.buffer = t.buffer[1:]
	}
	n := len(t.buffer)
	snapshot := append([]pendingStep(nil), t.buffer...)
	t.mu.Unlock()

	if dropped != nil {
		if err := t.spill.compact(snapshot); err != nil {
			t.logger.Warn("spill compaction after overflow drop failed", zap.Error(err))
		}
		t.logger.Warn("step buffer full, dropped oldest unflushed step",
			zap.String("taskId", dropped.TaskID), zap.Int("stepNumber", dropped.Record.StepNumber))
		t.publishOverflow(dropped.TaskID)
	}

	watermark := (t.cfg.BufferCapacity + 1) / 2
	if n >= watermark {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (t *Tracker) publishOverflow(taskID string) {
	t.overflowMu.Lock()
	sink := t.overflowSink
	t.overflowMu.Unlock()
	if sink == nil {
		return
	}
	sink(v1.NewOverflowEvent(v1.OverflowEvent{TaskID: taskID, DroppedCount: 1}))
}

func (t *Tracker) flushLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.drainOnShutdown()
			return
		case <-t.stopCh:
			t.drainOnShutdown()
			return
		case <-ticker.C:
			t.flush(ctx)
		case <-t.wake:
			t.flush(ctx)
		}
	}
}

// drainOnShutdown makes a bounded best-effort attempt to flush remaining
// buffered steps before the tracker stops; anything left over stays safe in
// the spill file for the next process to recover.
func (t *Tracker) drainOnShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.GraceOnClose)
	defer cancel()
	t.flush(ctx)
}

// Stop signals the flusher to make a final bounded drain attempt and waits
// for it to return.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	close(t.stopCh)
	t.wg.Wait()
	return t.spill.close()
}

// flush drains the current buffer and writes it to TaskStore/BlobStore,
// retrying the store write with a bounded exponential backoff. Steps that
// still fail after the backoff budget is exhausted remain in the buffer and
// the spill file for the next wake.
func (t *Tracker) flush(ctx context.Context) {
	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	op := func() (struct{}, error) {
		if err := t.writeBatch(ctx, batch); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithMaxTries(6))
	if err != nil {
		t.logger.Warn("step flush failed, steps remain spilled", zap.Int("count", len(batch)), zap.Error(err))
		t.mu.Lock()
		t.buffer = append(batch, t.buffer...)
		t.mu.Unlock()
		return
	}

	if err := t.spill.compact(t.snapshotBuffer()); err != nil {
		t.logger.Warn("spill compaction failed", zap.Error(err))
	}
}

func (t *Tracker) snapshotBuffer() []pendingStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pendingStep, len(t.buffer))
	copy(out, t.buffer)
	return out
}

// writeBatch uploads any screenshot bytes to BlobStore first (attaching the
// returned URL to the record), then appends the whole batch to TaskStore in
// one call, grouped by task.
func (t *Tracker) writeBatch(ctx context.Context, batch []pendingStep) error {
	byTask := make(map[string][]v1.StepRecord)
	order := make([]string, 0, 4)

	for _, p := range batch {
		record := p.Record
		if len(p.Screenshot) > 0 {
			key := screenshotKey(record.TaskID, record.StepNumber)
			url, err := t.blobStore.Put(ctx, key, p.Screenshot, "image/png")
			if err != nil {
				return apperrors.StoreErr("blob store put failed", err)
			}
			record.ScreenshotRef = url
		}
		if _, ok := byTask[record.TaskID]; !ok {
			order = append(order, record.TaskID)
		}
		byTask[record.TaskID] = append(byTask[record.TaskID], record)
	}

	for _, taskID := range order {
		if err := t.taskStore.AppendSteps(ctx, taskID, byTask[taskID]); err != nil {
			return apperrors.StoreErr("task store append failed", err)
		}
	}
	return nil
}
