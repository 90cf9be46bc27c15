// Package scheduler implements the Fetch Scheduler component.
//
// The Fetch Scheduler:
//   - Polls the REST API per endpoint on staggered minimum intervals
//   - Deduplicates concurrent pulls for the same endpoint (single-flight)
//   - Never advances an endpoint's fetch clock on failure, so a failed
//     pull retries at the next tick without a double penalty
//   - Supports forced refreshes that bypass the interval gate but not
//     the in-flight guard
//   - Only polls endpoints with at least one active observer
package scheduler
