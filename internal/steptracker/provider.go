package steptracker

import (
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
)

// Provide builds a Tracker, recovering any steps spilled by a prior run.
func Provide(cfg config.StepTrackerConfig, taskStore collab.TaskStore, blobStore collab.BlobStore, log *logger.Logger) (*Tracker, error) {
	return New(cfg, taskStore, blobStore, log.WithComponent("steptracker"))
}
