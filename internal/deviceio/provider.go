package deviceio

import (
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
)

// Provide builds the DeviceIO used by the agent loop. There is nothing to
// tear down: every adb invocation is a short-lived subprocess.
func Provide(cfg *config.Config, log *logger.Logger) (*DeviceIO, func() error, error) {
	_ = cfg
	return New(Config{}, log.WithComponent("deviceio")), func() error { return nil }, nil
}
