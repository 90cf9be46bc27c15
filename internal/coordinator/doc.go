// Package coordinator implements the composition root of the sync
// layer: the Subscriber Registry, the Source Arbiter, and the debounced
// batch notifier, wired around the Shared Cache, the Fetch Scheduler,
// and the Push Adapter.
//
// Observers only ever talk to the Coordinator: they subscribe to
// topics, receive merged point-in-time Snapshots, and may force an
// immediate refresh. Failover between push and pull is handled here and
// surfaces only as the snapshot's connection-state field.
package coordinator
