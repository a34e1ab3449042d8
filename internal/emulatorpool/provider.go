package emulatorpool

import (
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
)

// Provide builds a Pool from cfg. When cfg.Enabled is false it still
// returns a usable Pool (whose Acquire always fails with NoDeviceError)
// rather than nil, so callers need not special-case the disabled state.
func Provide(cfg config.DockerConfig, connMgr *connmgr.ConnectionManager, log *logger.Logger) (*Pool, error) {
	if !cfg.Enabled {
		return New(nil, cfg, connMgr, log), nil
	}

	client, err := NewDockerClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return New(client, cfg, connMgr, log), nil
}
