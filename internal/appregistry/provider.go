package appregistry

import (
	"github.com/kandev/androidctl/internal/common/logger"
)

// Provide builds the process-wide app registry, loaded once from the
// embedded defaults.
func Provide(log *logger.Logger) (*Registry, error) {
	r := New(log.WithComponent("appregistry"))
	if err := r.LoadDefaults(); err != nil {
		return nil, err
	}
	return r, nil
}
