// Package scheduler is the single timer abstraction used by the engine.
//
// Components schedule one-shot and repeating callbacks and cancel them by
// handle. Runtime executes every callback on one run-loop goroutine, so
// callbacks never run in parallel with each other. Virtual is a deterministic
// clock for tests that fires callbacks as Advance moves time forward.
package scheduler
