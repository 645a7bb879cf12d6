// Package models contains the GORM models behind the repositories.
// Domain types carry no ORM tags; each model converts to and from its domain type.
//
//   - sequence.go: numbering scopes and issued identifiers
//   - finance.go: payable documents, schedule items, payments, allocations, additional costs
//   - base.go: shared columns of aggregate roots
package models
