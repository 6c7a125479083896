package warehouse

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ClientFactory creates a warehouse client from a driver connection string.
type ClientFactory func(ctx context.Context, connStr string, logger *zap.Logger) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ClientFactory)
)

// Register makes an adapter available under the given warehouse type.
// Adapters call this from init(); main imports them for side effects.
func Register(warehouseType string, factory ClientFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(warehouseType)] = factory
}

// NewClient creates a warehouse client for the given adapter type.
func NewClient(ctx context.Context, warehouseType, connStr string, logger *zap.Logger) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(warehouseType)]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported warehouse type %q", warehouseType)
	}
	return factory(ctx, connStr, logger)
}
