package modelclient

import (
	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// Provide builds a ModelClient for the given task-scoped config.
func Provide(cfg v1.ModelConfig, log *logger.Logger) *ModelClient {
	return New(cfg, log.WithComponent("modelclient"))
}
