package store

import (
	"fmt"

	"github.com/fyrsmithlabs/sprintai/internal/config"
)

// Open builds the Store selected by cfg.Driver.
func Open(cfg config.StoreConfig, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		return NewMemory(opts...), nil
	case config.StoreSQLite:
		path, err := config.ExpandHome(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve store path: %w", err)
		}
		return OpenSQLite(path, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
