// Package orchestrator runs acquisition tasks sequentially on a single
// worker goroutine, creating a journal per task and publishing a summary
// when each one reaches a terminal state.
package orchestrator
