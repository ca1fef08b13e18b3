package cache

import "sync"

var (
	defaultMu      sync.RWMutex
	defaultService Service
)

// SetDefault installs the process-wide default cache service. Serializer
// types that do not carry their own service resolve to it. Set it once at
// startup; it is not meant to be swapped concurrently with reads.
func SetDefault(svc Service) {
	defaultMu.Lock()
	defaultService = svc
	defaultMu.Unlock()
}

// Default returns the process-wide default cache service, or nil when none is
// installed. A nil service means callers compute directly.
func Default() Service {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultService
}

// ClearDefault removes the process-wide default cache service.
func ClearDefault() {
	SetDefault(nil)
}
