// Package push implements the Push Adapter component.
//
// The Push Adapter:
//   - Maintains one WebSocket connection to the live market feed
//   - Normalizes heterogeneous push payloads (ticker, book, trade) into
//     the same value shapes the pull path produces
//   - Tracks a connection state machine: disconnected -> connecting ->
//     connected -> degraded (missed heartbeats) -> disconnected
//   - Reconnects on its own with exponential backoff; consumers only
//     ever see the state signal
package push
