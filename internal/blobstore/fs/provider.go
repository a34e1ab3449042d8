package fs

import "github.com/kandev/androidctl/internal/common/config"

// Provide builds the reference filesystem BlobStore from config.
func Provide(cfg config.BlobStoreConfig) (*Store, error) {
	return New(cfg)
}
