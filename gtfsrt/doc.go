// Package gtfsrt fetches GTFS-Realtime VehiclePositions feeds and turns the
// entries that describe AIS-equipped vessels into position reports.
//
// Ferry operators publish their fleet as GTFS-RT vehicles. An entry is
// accepted when its vehicle id is a 9-digit MMSI and it carries a position.
package gtfsrt
