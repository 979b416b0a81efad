package logger

import "sync"

// named holds component loggers registered by the binary at startup so the
// rest of the program can fetch them by name.
var named = struct {
	mu sync.RWMutex
	m  map[string]*Logger
}{m: make(map[string]*Logger)}

// Register stores a logger under a component name, replacing any previous
// registration.
func Register(name string, l *Logger) {
	named.mu.Lock()
	defer named.mu.Unlock()
	named.m[name] = l
}

// Get returns the logger registered under name. Unregistered names fall
// back to the global logger tagged with the requested component, so Get
// always returns a usable logger.
func Get(name string) *Logger {
	named.mu.RLock()
	l, ok := named.m[name]
	named.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the registry with component-tagged children of the
// global logger. Call after Init.
func RegisterDefaults(names ...string) {
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}
