package agent

import (
	"github.com/kandev/androidctl/internal/actiondispatcher"
	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
	"github.com/kandev/androidctl/internal/deviceio"
	"github.com/kandev/androidctl/internal/modelclient"
	"github.com/kandev/androidctl/internal/steptracker"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// Provide builds an Agent for one task's run. SessionManager calls this
// once per task and discards the Agent when Run returns.
func Provide(cfg v1.AgentConfig, connMgr *connmgr.ConnectionManager, deviceIO *deviceio.DeviceIO, appRegistry *appregistry.Registry, modelClient *modelclient.ModelClient, dispatcher *actiondispatcher.Dispatcher, tracker *steptracker.Tracker, log *logger.Logger) *Agent {
	return New(cfg, connMgr, deviceIO, appRegistry, modelClient, dispatcher, tracker, log.WithComponent("agent"))
}
