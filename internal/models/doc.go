// Package models defines the core domain models for FairShare.
//
// # Entities
//
// The following records are owned by the entity store:
//   - Group: a set of members sharing expenses, with running totals
//   - Expense: an amount paid by one member and split equally between members
//   - Settlement: an append-only record of value moved from one member to another
//
// Balance and MemberSummary are derived values. They are recomputed from the
// expense and settlement history on every read and never persisted.
//
// # Identities
//
// Members are identified by opaque strings (wallet addresses in the reference
// deployment). Relationships use IDs rather than pointers: an Expense refers to
// its Group by GroupID and does not own it.
//
// # Amounts
//
// Amounts are unsigned integers of up to 256 bits held in decimal.Decimal with
// a zero exponent. See Amount for the helpers that enforce that range.
package models
