package sqlite

import (
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/db"
)

// Provide opens cfg's configured database driver and builds a Store,
// returning the Pool too so the composition root can close it on shutdown.
func Provide(cfg config.DatabaseConfig) (*Store, *db.Pool, error) {
	pool, driver, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewWithPool(pool, driver)
	if err != nil {
		_ = pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}
