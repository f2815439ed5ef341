// safego.go — panic-safe goroutine launcher.
package util

import (
	"runtime/debug"

	"github.com/multi-agent/chatstream/pkg/logger"
)

// SafeGo runs fn in a new goroutine, recovering panics and logging the stack.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panicked",
					logger.FieldError, r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
