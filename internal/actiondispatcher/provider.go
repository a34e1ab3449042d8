package actiondispatcher

import (
	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/deviceio"
)

// Provide builds a Dispatcher wired to the given collaborators.
func Provide(io *deviceio.DeviceIO, apps *appregistry.Registry, confirmation collab.ConfirmationCallback, takeover collab.TakeoverCallback, log *logger.Logger) *Dispatcher {
	return New(io, apps, confirmation, takeover, log.WithComponent("actiondispatcher"))
}
