// Package engine implements the cooperative single-threaded loop the
// appearance subsystem runs on.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every mutation of appearance state happens on the goroutine that drives the
// Loop (Run, RunUntil or Tick). Other goroutines, such as asset fetch workers,
// never touch that state directly; they Post a task and the loop runs it.
//
// Tick Processing:
// 1. Drain the task queue (tasks posted by tasks run in the same drain)
// 2. Call every idle poll once; polls that report done are dropped
// 3. Drain the queue again so work posted by polls is not delayed a tick
//
// Nothing ever blocks waiting for an asynchronous result. Completion is seen
// either through a posted callback or through an idle poll that keeps
// re-checking a predicate, which is also how timeouts are enforced.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Appearance events are stamped from Clock.Next(), never from wall time.
//
// Wall Clock:
// Timeouts read a WallClock so tests can substitute a fake and advance it.
package engine
