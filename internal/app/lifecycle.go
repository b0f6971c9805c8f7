package app

import (
	"venuehq.io/banquet/internal/pkg/logger"
)

// Shutdown drains the worker pools. The HTTP server itself is shut down
// by main so in-flight requests finish before side effects are cut off.
func (a *Application) Shutdown() {
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	_ = logger.Sync()
}
