// Package events names the cross-process subjects published on the
// optional event bus (internal/events/bus) so a dashboard, orchestrator,
// or log shipper can observe task progress without querying the TaskStore
// directly.
package events

// Subjects for task lifecycle.
const (
	TaskCreated  = "task.created"
	TaskStep     = "task.step"
	TaskTerminal = "task.terminal"
)

// Subjects for device/session lifecycle.
const (
	DeviceConnected    = "device.connected"
	DeviceDisconnected = "device.disconnected"
	SessionStarted     = "session.started"
	SessionStopped     = "session.stopped"
)

// Subjects for the emulator pool.
const (
	EmulatorAcquired = "emulator.acquired"
	EmulatorReleased = "emulator.released"
)

// BuildTaskStepSubject returns the per-task subject a step_update event for
// taskID is published under, so a subscriber can watch a single task
// without filtering every step in the system.
func BuildTaskStepSubject(taskID string) string {
	return TaskStep + "." + taskID
}

// BuildTaskStepWildcardSubject returns the wildcard subscription matching
// every task's step events.
func BuildTaskStepWildcardSubject() string {
	return TaskStep + ".*"
}

// BuildTaskTerminalSubject returns the per-task subject a task's terminal
// event is published under.
func BuildTaskTerminalSubject(taskID string) string {
	return TaskTerminal + "." + taskID
}
