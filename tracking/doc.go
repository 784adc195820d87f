// Package tracking turns a stream of vessel reports into current state,
// recent history and rolling maximum speed.
//
// A Tracker owns the three stores. Reports enter through Ingest, which never
// blocks, and are applied one at a time by a single consumer goroutine, so
// reports for the same MMSI are applied in arrival order. For each report the
// tracker:
//   - drops reports without payload, of unknown class or with an invalid MMSI
//   - ignores non-vessel classes (base stations, AtoN, SART)
//   - detects out-of-order position reports and identity changes
//   - registers max speed, extends the past track and merges the snapshot,
//     in that order
//
// Reads go straight to the stores and may run concurrently with ingestion.
package tracking
