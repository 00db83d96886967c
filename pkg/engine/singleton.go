package engine

import (
	"log/slog"
	"sync"
)

var (
	defaultOnce   sync.Once
	defaultHandle *Handle
	defaultErr    error
)

// Default returns a process-wide Handle built from cfg and backend the
// first time it's called, and that same Handle on every subsequent call
// regardless of the arguments passed (they're ignored after the first
// successful call). Most programs only need one engine; New's explicit-
// handle API exists precisely so this convenience doesn't force hidden
// global state onto callers who want more than one.
func Default(cfg Config, backend DeviceBackend, logger *slog.Logger) (*Handle, error) {
	defaultOnce.Do(func() {
		defaultHandle, defaultErr = New(cfg, backend, logger)
	})
	return defaultHandle, defaultErr
}
