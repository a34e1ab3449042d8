package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// runOneTask creates a session, starts description as a task under cfg, and
// blocks printing every step/terminal event to stdout until the task
// reaches a terminal state. Each caller subscribing to a session gets its
// own independent event channel from sessionmanager.Manager.Subscribe, so
// this CLI run doesn't compete with any WebSocket subscriber also watching
// the same session through cmd/androidctl's HTTP surface.
func runOneTask(ctx context.Context, d *deps, log *logger.Logger, description string, cfg v1.AgentConfig) error {
	sessionID := d.sessionMgr.CreateSession()

	ch, unsubscribe, err := d.sessionMgr.Subscribe(sessionID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	taskID, err := d.sessionMgr.Start(ctx, sessionID, description, cfg)
	if err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	log.Info("task started", zap.String("taskId", taskID), zap.String("sessionId", sessionID))

	for event := range ch {
		printEvent(taskID, event)
		if event.Kind == v1.EventTerminal {
			break
		}
	}
	return nil
}

func printEvent(taskID string, event v1.Event) {
	switch event.Kind {
	case v1.EventStepUpdate:
		s := event.Step
		fmt.Printf("[%s] step %d: %s (success=%v)\n", taskID, s.StepNumber, s.Thought, s.Success)
	case v1.EventTerminal:
		t := event.Terminal
		fmt.Printf("[%s] finished: %s %s\n", taskID, t.Status, t.Message)
	case v1.EventOverflow:
		o := event.Overflow
		fmt.Printf("[%s] dropped %d step(s), step buffer full\n", taskID, o.DroppedCount)
	}
}
