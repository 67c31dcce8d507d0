// Package journal records the rover's move history.
//
// The journal package implements:
//   - A bounded in-memory journal for development and tests
//   - A SQLite journal backed by a single moves table
//   - Offset/limit pagination in either chronological order
//
// Every command the service attempts is recorded, including refused ones.
// The journal is an audit log: it is never replayed to rebuild rover state.
//
// Usage:
//
//	j, err := journal.NewSQLiteJournal("moves.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer j.Close()
//
//	entries, err := j.List(ctx, 0, 20, true)
package journal
