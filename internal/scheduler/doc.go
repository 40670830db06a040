// Package scheduler drives the continuous execution loop.
//
// # Why Scheduler Exists
//
// The engine re-evaluates the whole graph over and over at a user-chosen
// rate. The scheduler owns that loop and nothing else: it does not know
// about nodes or links, it just calls a tick function and then waits.
//
// # State Machine
//
//	Stopped --Start--> Running --Stop / crash--> Stopped
//
//   - Start while Running is a no-op. At most one worker goroutine exists.
//   - Stop signals the worker and waits for it, bounded by a join timeout.
//     If the worker does not exit in time the scheduler is still Stopped
//     and the straggler exits on its own at its next check. Every worker
//     has its own stop channel, so a later Start never revives it.
//   - A panic that escapes the tick function is recovered, logged, and
//     moves the scheduler to Stopped.
//
// # Pacing
//
// After every tick the worker waits 1s/rate. The rate is clamped to at
// least MinRate, so the longest possible wait is ten seconds. The wait
// wakes early when Stop is called and is re-timed when the rate changes.
package scheduler
