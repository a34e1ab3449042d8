// Package agent owns the per-task control loop: it assembles the
// conversation context from a fresh screenshot each iteration, asks the
// model what to do, parses and dispatches the action, and tracks every
// step, until the model finishes the task, the step budget is exhausted,
// or cancellation is observed.
package agent

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/actiondispatcher"
	"github.com/kandev/androidctl/internal/actionparser"
	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
	"github.com/kandev/androidctl/internal/deviceio"
	"github.com/kandev/androidctl/internal/modelclient"
	"github.com/kandev/androidctl/internal/steptracker"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// maxConsecutiveParseFailures bounds how many malformed model replies in a
// row are tolerated before the task is declared an error.
const maxConsecutiveParseFailures = 2

// Sink receives every StepEvent/OverflowEvent/TerminalEvent a task emits.
type Sink func(v1.Event)

// Agent owns one task's run of the control loop. It holds only non-owning
// references to its collaborators; SessionManager constructs and discards
// one Agent per task.
type Agent struct {
	cfg         v1.AgentConfig
	connMgr     *connmgr.ConnectionManager
	deviceIO    *deviceio.DeviceIO
	appRegistry *appregistry.Registry
	modelClient *modelclient.ModelClient
	dispatcher  *actiondispatcher.Dispatcher
	tracker     *steptracker.Tracker
	logger      *logger.Logger
}

// New builds an Agent for a single task. cfg is immutable for the task's
// lifetime.
func New(cfg v1.AgentConfig, connMgr *connmgr.ConnectionManager, deviceIO *deviceio.DeviceIO, appRegistry *appregistry.Registry, modelClient *modelclient.ModelClient, dispatcher *actiondispatcher.Dispatcher, tracker *steptracker.Tracker, log *logger.Logger) *Agent {
	return &Agent{
		cfg:         cfg,
		connMgr:     connMgr,
		deviceIO:    deviceIO,
		appRegistry: appRegistry,
		modelClient: modelClient,
		dispatcher:  dispatcher,
		tracker:     tracker,
		logger:      log,
	}
}

// Result is the final outcome of Run.
type Result struct {
	Status  v1.TaskStatus
	Message string
}

// Run drives task to completion, emitting every step and exactly one
// terminal event to sink. ctx carries the task's cancellation token: it is
// checked at the loop head and threaded into every blocking call.
func (a *Agent) Run(ctx context.Context, task v1.Task, sink Sink) Result {
	log := a.logger.WithTaskID(task.ID)

	deviceID, err := a.resolveDevice(ctx)
	if err != nil {
		return a.terminate(sink, task.ID, v1.TaskError, err.Error())
	}
	log = log.WithDeviceID(deviceID)

	messages := []v1.Message{
		{Role: v1.RoleSystem, Parts: []v1.ContentPart{{Type: v1.ContentText, Text: systemPrompt(a.cfg.Language)}}},
	}

	consecutiveParseFailures := 0

	for n := 1; n <= a.cfg.MaxSteps; n++ {
		if err := ctx.Err(); err != nil {
			return a.terminate(sink, task.ID, v1.TaskStopped, "cancelled")
		}

		started := time.Now()

		sc, err := a.deviceIO.Screenshot(ctx, deviceID)
		if err != nil {
			if apperrors.Is(err, apperrors.Cancelled) {
				return a.terminate(sink, task.ID, v1.TaskStopped, "cancelled")
			}
			a.emitError(sink, task.ID, n, started, "ScreenCaptureFailed", err)
			return a.terminate(sink, task.ID, v1.TaskError, err.Error())
		}

		currentApp, err := a.deviceIO.CurrentApp(ctx, deviceID)
		if err != nil {
			currentApp = ""
		}

		text := screenInfo(currentApp, a.cfg.Language)
		if n == 1 {
			text = task.Description + "\n\n" + text
		}
		imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(sc.PNG)
		messages = append(messages, v1.Message{
			Role: v1.RoleUser,
			Parts: []v1.ContentPart{
				{Type: v1.ContentText, Text: text},
				{Type: v1.ContentImage, ImageURL: imageURL},
			},
		})

		reply, err := a.modelClient.Request(ctx, messages)
		if err != nil {
			if apperrors.Is(err, apperrors.Cancelled) {
				return a.terminate(sink, task.ID, v1.TaskStopped, "cancelled")
			}
			a.emitError(sink, task.ID, n, started, "ModelRequestFailed", err)
			return a.terminate(sink, task.ID, v1.TaskError, err.Error())
		}

		messages = append(messages, v1.Message{
			Role: v1.RoleAssistant,
			Parts: []v1.ContentPart{
				{Type: v1.ContentText, Text: "<think>" + reply.Thought + "</think><answer>" + reply.ActionText + "</answer>"},
			},
		})

		action, err := actionparser.Parse(reply.ActionText)
		if err != nil {
			consecutiveParseFailures++
			if consecutiveParseFailures > maxConsecutiveParseFailures {
				return a.terminate(sink, task.ID, v1.TaskError, "too many malformed model replies")
			}
			a.emitError(sink, task.ID, n, started, "MalformedResponse", err)
			continue
		}
		consecutiveParseFailures = 0

		outcome, err := a.dispatcher.Execute(ctx, deviceID, action, actiondispatcher.Screen{Width: sc.Width, Height: sc.Height})
		if err != nil {
			if apperrors.Is(err, apperrors.Cancelled) {
				return a.terminate(sink, task.ID, v1.TaskStopped, "cancelled")
			}
			a.emitError(sink, task.ID, n, started, "DispatchFailed", err)
			return a.terminate(sink, task.ID, v1.TaskError, err.Error())
		}

		outcomeEnum := v1.OutcomeSuccess
		if !outcome.Success {
			outcomeEnum = v1.OutcomeFailure
		}
		record := v1.StepRecord{
			StepNumber: n,
			TaskID:     task.ID,
			Type:       v1.StepAction,
			Thought:    reply.Thought,
			Action:     &action,
			Outcome:    outcomeEnum,
			ElapsedMs:  time.Since(started).Milliseconds(),
			CreatedAt:  started,
		}
		if err := a.tracker.Append(record, sc.PNG); err != nil {
			log.Warn("step append failed", zap.Int("step", n), zap.Error(err))
		}

		sink(v1.NewStepEvent(v1.StepEvent{
			TaskID:     task.ID,
			StepNumber: n,
			Thought:    reply.Thought,
			Action:     &action,
			Outcome:    outcomeEnum,
			Success:    outcome.Success,
			Finished:   outcome.ShouldFinish,
		}))

		if outcome.ShouldFinish {
			return a.terminate(sink, task.ID, v1.TaskCompleted, outcome.UserMessage)
		}
	}

	return a.terminate(sink, task.ID, v1.TaskError, "step budget exhausted")
}

// resolveDevice returns cfg.DeviceID if pinned, else the first connected
// device reported by ConnectionManager, pinned for the task's lifetime.
func (a *Agent) resolveDevice(ctx context.Context) (string, error) {
	if a.cfg.DeviceID != "" {
		return a.cfg.DeviceID, nil
	}
	devices, err := a.connMgr.ListDevices(ctx)
	if err != nil {
		return "", apperrors.NoDeviceError("failed to list devices: " + err.Error())
	}
	for _, d := range devices {
		if d.Status == v1.DeviceStatusDevice {
			return d.ID, nil
		}
	}
	return "", apperrors.NoDeviceError("no connected device available")
}

func (a *Agent) emitError(sink Sink, taskID string, stepNumber int, started time.Time, kind string, err error) {
	record := v1.StepRecord{
		StepNumber: stepNumber,
		TaskID:     taskID,
		Type:       v1.StepError,
		Outcome:    v1.OutcomeFailure,
		Error:      &v1.ErrorPayload{Kind: kind, Detail: err.Error()},
		ElapsedMs:  time.Since(started).Milliseconds(),
		CreatedAt:  started,
	}
	if appendErr := a.tracker.Append(record, nil); appendErr != nil {
		a.logger.Warn("error step append failed", zap.Error(appendErr))
	}
	sink(v1.NewStepEvent(v1.StepEvent{
		TaskID:     taskID,
		StepNumber: stepNumber,
		Outcome:    v1.OutcomeFailure,
		Success:    false,
	}))
}

func (a *Agent) terminate(sink Sink, taskID string, status v1.TaskStatus, message string) Result {
	sink(v1.NewTerminalEvent(v1.TerminalEvent{TaskID: taskID, Status: status, Message: message}))
	return Result{Status: status, Message: message}
}
