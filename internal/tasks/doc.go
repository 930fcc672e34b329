// Package tasks runs periodic background actions such as anti-AFK movement
// and continuous inventory stacking.
//
// Each Task is a small Idle/Running state machine driven by its own goroutine
// and ticker. Starting a running task is a no-op that reports the current
// status; stopping an idle task returns a services.ErrState error that HTTP
// callers render as success.
package tasks
