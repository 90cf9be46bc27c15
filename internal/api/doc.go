// Package api implements the REST client for the pull path.
//
// The client:
//   - Exposes one query per endpoint (ticker, orderbook, trades,
//     balances, orders, bot status, logs)
//   - Retries 5xx and 429 responses with jittered exponential backoff
//   - Fails fast on 4xx responses
//   - Adapts onto the scheduler's Fetcher interface via FetcherFor
package api
