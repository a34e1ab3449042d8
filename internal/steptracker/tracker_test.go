package steptracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

type fakeTaskStore struct {
	mu    sync.Mutex
	steps map[string][]v1.StepRecord
	fail  bool
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{steps: make(map[string][]v1.StepRecord)}
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task v1.Task) error { return nil }
func (f *fakeTaskStore) UpdateTaskStatus(ctx context.Context, taskID string, status v1.TaskStatus, result, errMsg string) error {
	return nil
}
func (f *fakeTaskStore) AppendSteps(ctx context.Context, taskID string, steps []v1.StepRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBoom
	}
	f.steps[taskID] = append(f.steps[taskID], steps...)
	return nil
}
func (f *fakeTaskStore) GetTask(ctx context.Context, taskID string) (v1.Task, error) {
	return v1.Task{}, nil
}
func (f *fakeTaskStore) ListTasks(ctx context.Context, filter v1.TaskFilter) ([]v1.Task, error) {
	return nil, nil
}
func (f *fakeTaskStore) GetSteps(ctx context.Context, taskID string, offset, limit int) ([]v1.StepRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps[taskID], nil
}
func (f *fakeTaskStore) GetScreenshots(ctx context.Context, taskID string) ([]string, error) {
	return nil, nil
}

func (f *fakeTaskStore) count(taskID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps[taskID])
}

type fakeBlobStore struct{}

func (fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "file://" + key, nil
}
func (fakeBlobStore) Delete(ctx context.Context, key string) error { return nil }

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}

func testConfig(t *testing.T) config.StepTrackerConfig {
	return config.StepTrackerConfig{
		BufferCapacity: 4,
		FlushInterval:  20 * time.Millisecond,
		SpillPath:      filepath.Join(t.TempDir(), "spill.log"),
		GraceOnClose:   2 * time.Second,
	}
}

func TestAppendThenFlushPersistsToTaskStore(t *testing.T) {
	store := newFakeTaskStore()
	tr, err := New(testConfig(t), store, fakeBlobStore{}, logger.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	if err := tr.Append(v1.StepRecord{TaskID: "t1", StepNumber: 1, Type: v1.StepAction}, nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for store.count("t1") == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for flush")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAppendWithScreenshotAttachesURL(t *testing.T) {
	store := newFakeTaskStore()
	tr, err := New(testConfig(t), store, fakeBlobStore{}, logger.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	if err := tr.Append(v1.StepRecord{TaskID: "t1", StepNumber: 1, Type: v1.StepScreenshot}, []byte("fake png bytes")); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for store.count("t1") == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for flush")
		case <-time.After(5 * time.Millisecond):
		}
	}
	steps, _ := store.GetSteps(context.Background(), "t1", 0, 10)
	if len(steps) != 1 || steps[0].ScreenshotRef == "" {
		t.Fatalf("expected screenshot ref to be attached, got %+v", steps)
	}
}

func TestAppendDropsOldestUnflushedStepWhenBufferFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.BufferCapacity = 2
	store := newFakeTaskStore()
	tr, err := New(cfg, store, fakeBlobStore{}, logger.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var overflows []v1.Event
	var mu sync.Mutex
	tr.SetOverflowSink(func(e v1.Event) {
		mu.Lock()
		defer mu.Unlock()
		overflows = append(overflows, e)
	})

	for n := 1; n <= 3; n++ {
		if err := tr.Append(v1.StepRecord{TaskID: "t1", StepNumber: n, Type: v1.StepAction}, nil); err != nil {
			t.Fatalf("append %d: %v", n, err)
		}
	}

	mu.Lock()
	got := append([]v1.Event(nil), overflows...)
	mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected exactly one OverflowEvent, got %d", len(got))
	}
	if got[0].Kind != v1.EventOverflow || got[0].Overflow.TaskID != "t1" || got[0].Overflow.DroppedCount != 1 {
		t.Fatalf("unexpected overflow event: %+v", got[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	deadline := time.After(2 * time.Second)
	for store.count("t1") < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for flush, got %d steps", store.count("t1"))
		case <-time.After(5 * time.Millisecond):
		}
	}
	steps, _ := store.GetSteps(context.Background(), "t1", 0, 10)
	if len(steps) != 2 || steps[0].StepNumber != 2 || steps[1].StepNumber != 3 {
		t.Fatalf("expected only step 2 and 3 to survive the drop, got %+v", steps)
	}
}

func TestSpillRecoversAfterRestart(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeTaskStore()
	store.fail = true

	tr, err := New(cfg, store, fakeBlobStore{}, logger.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Append(v1.StepRecord{TaskID: "t1", StepNumber: 1, Type: v1.StepAction}, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Simulate a crash: do not flush, just drop the tracker without Stop.

	tr2, err := New(cfg, store, fakeBlobStore{}, logger.Default())
	if err != nil {
		t.Fatalf("New (recover): %v", err)
	}
	if len(tr2.buffer) != 1 {
		t.Fatalf("expected 1 recovered step, got %d", len(tr2.buffer))
	}
}
