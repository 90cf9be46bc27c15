// Package model defines the shared domain types used across the sync
// coordinator: endpoint keys, market and account value types, data-source
// and connection-state enums, and the Snapshot handed to observers.
//
// Conventions:
//   - Prices and sizes use decimal.Decimal (exact, exchange-native scale)
//   - Timestamps are time.Time in the local clock domain unless a field
//     is explicitly named ExchangeTS
package model
