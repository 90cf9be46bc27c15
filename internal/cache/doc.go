// Package cache implements the Shared Cache component.
//
// The Shared Cache:
//   - Holds the last-known value plus observation timestamp per endpoint
//   - Enforces last-writer-by-time-wins: a write carrying a strictly
//     older observation than the current entry is discarded, so an
//     out-of-order REST response can never clobber a fresher push event
//   - Serves value copies to unlimited concurrent readers
//   - Counts rejected writes for diagnostics
package cache
