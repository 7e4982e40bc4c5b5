// Package tasks keeps the platform's remote collections cached in memory and fresh.
//
// # Collections
//
// The [Coordinator] owns one collection per [ResourceType]: call history, recordings, personal numbers
// and platform numbers. Each collection moves Empty → Loading → Ready, or Ready with an error after a
// failed refresh. A failed refresh never drops items that were already loaded.
//
// # Refreshing
//
//   - [Coordinator.LoadIfEmpty] : fetch only when nothing is cached and the session is authenticated
//   - [Coordinator.Refresh] : fetch now, ignored while a fetch of the same type is in flight
//   - [Coordinator.PreloadAll] : LoadIfEmpty for every type concurrently
//   - [Coordinator.Start] : every interval, silently refresh collections older than the interval
//
// Silent refreshes do not flip the visible loading flag and their failures are only logged.
//
// # Events
//
// [Coordinator.Subscribe] delivers [Event] values without ever blocking the coordinator, the same way
// progress is reported elsewhere: select with default, dropping updates a slow consumer cannot take.
//
// # Persistence
//
// With a [SnapshotStore], successful refreshes are saved and [Coordinator.Restore] warms the collections
// at startup. [Coordinator.Reset] clears both the collections and the store on logout.
//
// # Export
//
// [Coordinator.Export] writes every collection to disk in one of the formatter package's formats using a small worker pool.
package tasks
