// Package ingest contains the transports that deliver decoded reports to the
// tracker: a redis pub/sub subscriber, a newline-delimited JSON replayer and
// a GTFS-Realtime poller.
//
// Sources never stop on a bad record. Undecodable input is logged and
// skipped so a single malformed message cannot stall delivery.
package ingest
