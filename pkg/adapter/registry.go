package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

// Info describes a registered adapter.
type Info struct {
	Name          string
	CaseSensitive bool
}

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes an adapter available under name. Names are matched
// case-insensitively. Adapter packages call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// NewAdapter builds the adapter named by cfg.Type without connecting it.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered names in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe returns an Info for every registered adapter, sorted by name.
func Describe() []Info {
	names := ListAdapters()
	infos := make([]Info, 0, len(names))
	for _, name := range names {
		factory, ok := Get(name)
		if !ok {
			continue
		}
		infos = append(infos, Info{Name: name, CaseSensitive: factory(nil).CaseSensitive()})
	}
	return infos
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned for a type with no registered factory.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check target.type in fieldalias.yaml or pass --type", e.Type, e.Available)
}
