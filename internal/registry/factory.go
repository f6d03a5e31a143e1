package registry

import (
	"fmt"
	"strings"

	"github.com/leakdex/leakdex/internal/config"
)

// NewStore creates a Store instance based on configuration.
// Default is etcd if type is not specified.
func NewStore(cfg config.RegistryConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "etcd", "":
		return NewEtcdStore(cfg.Endpoints, cfg.DialTimeout)

	case "memory":
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported registry type: %s (supported: etcd, memory)", cfg.Type)
	}
}
