package test

import (
	"go.uber.org/fx"
)

// LifecycleRecorder collects hooks so tests can invoke them directly.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

// Append stores the hook for manual invocation.
func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// ShutdownerStub signals tests when a graceful shutdown was requested.
type ShutdownerStub struct {
	Called chan struct{}
}

// Shutdown records the shutdown request without blocking.
func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	if s.Called != nil {
		select {
		case s.Called <- struct{}{}:
		default:
		}
	}
	return nil
}
