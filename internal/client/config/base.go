package config

import "sync"

// BaseConfigManager guards one section of the main config
type BaseConfigManager[T any] struct {
	mu   sync.RWMutex
	conf *T
}

// Return the read-only configuration by value
func (a *BaseConfigManager[T]) C() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.conf
}

type ConfigModifierFunc[T any] func(c *T)

func (a *BaseConfigManager[T]) Set(setFunc ConfigModifierFunc[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// call the set function
	setFunc(a.conf)
}

func (a *BaseConfigManager[T]) lock() {
	a.mu.Lock()
}

func (a *BaseConfigManager[T]) unlock() {
	a.mu.Unlock()
}

func newBase[T any](config *T) BaseConfigManager[T] {
	return BaseConfigManager[T]{conf: config}
}
