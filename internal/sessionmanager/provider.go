package sessionmanager

import (
	"github.com/kandev/androidctl/internal/actiondispatcher"
	"github.com/kandev/androidctl/internal/agent"
	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
	"github.com/kandev/androidctl/internal/deviceio"
	"github.com/kandev/androidctl/internal/modelclient"
	"github.com/kandev/androidctl/internal/steptracker"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// Deps bundles the collaborators shared by every task's Agent, constructed
// once by the composition root and reused across every session and task.
type Deps struct {
	ConnMgr     *connmgr.ConnectionManager
	DeviceIO    *deviceio.DeviceIO
	AppRegistry *appregistry.Registry
	ModelClient *modelclient.ModelClient
	Dispatcher  *actiondispatcher.Dispatcher
	Tracker     *steptracker.Tracker
}

// Provide builds a Manager whose AgentFactory constructs a fresh *agent.Agent
// per task from the shared deps, parameterized only by that task's
// AgentConfig (device pin, language, step budget). The shared Tracker's
// OverflowEvents are routed back through the Manager to whichever session
// owns the affected task, since the Tracker's background flusher has no
// Sink of its own to publish through.
func Provide(cfg config.SessionManagerConfig, taskStore collab.TaskStore, deps Deps, log *logger.Logger) *Manager {
	factory := func(acfg v1.AgentConfig) runner {
		return agent.Provide(acfg, deps.ConnMgr, deps.DeviceIO, deps.AppRegistry, deps.ModelClient, deps.Dispatcher, deps.Tracker, log)
	}
	m := New(taskStore, factory, cfg.SubscriberBacklog, log.WithComponent("sessionmanager"))
	deps.Tracker.SetOverflowSink(func(e v1.Event) {
		if e.Overflow != nil {
			m.BroadcastToTask(e.Overflow.TaskID, e)
		}
	})
	return m
}
