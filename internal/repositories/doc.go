// Package repositories implements SQLite persistence for the resolution journal.
//
// Key Implementations:
//   - [ResolutionRepository] : one row per pipeline outcome, attempts stored as JSON
//
// The journal is append-only. Rows are never updated, and [ResolutionRepository.Prune] is the only way they leave.
package repositories
