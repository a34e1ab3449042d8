package events

import (
	"context"

	"github.com/kandev/androidctl/internal/events/bus"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

const sourceSessionManager = "sessionmanager"

// BridgeSession drains ch (as returned by sessionmanager.Manager.Subscribe)
// and republishes its step and terminal events onto eb under this package's
// subject constants (overflow events are not forwarded), until ch is closed
// or ctx is done. Run on its own goroutine by the caller
// that started the task; the caller's unsubscribe func closes ch, which
// ends this loop.
func BridgeSession(ctx context.Context, eb bus.EventBus, sessionID string, ch <-chan v1.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			publish(ctx, eb, sessionID, e)
		}
	}
}

func publish(ctx context.Context, eb bus.EventBus, sessionID string, e v1.Event) {
	switch e.Kind {
	case v1.EventStepUpdate:
		if e.Step == nil {
			return
		}
		_ = eb.Publish(ctx, BuildTaskStepSubject(e.Step.TaskID), bus.NewEvent(TaskStep, sourceSessionManager, map[string]interface{}{
			"sessionId":     sessionID,
			"taskId":        e.Step.TaskID,
			"stepNumber":    e.Step.StepNumber,
			"thought":       e.Step.Thought,
			"outcome":       e.Step.Outcome,
			"screenshotRef": e.Step.ScreenshotRef,
			"success":       e.Step.Success,
			"finished":      e.Step.Finished,
		}))
	case v1.EventTerminal:
		if e.Terminal == nil {
			return
		}
		_ = eb.Publish(ctx, BuildTaskTerminalSubject(e.Terminal.TaskID), bus.NewEvent(TaskTerminal, sourceSessionManager, map[string]interface{}{
			"sessionId": sessionID,
			"taskId":    e.Terminal.TaskID,
			"status":    e.Terminal.Status,
			"message":   e.Terminal.Message,
		}))
	case v1.EventOverflow:
		// Overflow events are a local backpressure signal for in-process
		// subscribers; they carry no durable meaning for a cross-process
		// listener, so they are not forwarded.
	}
}
