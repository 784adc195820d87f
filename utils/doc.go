// Package utils provides geodesy and time helpers shared by the stores and
// the query layer.
//
// It contains:
//   - Rhumb-line and great-circle distance in metres
//   - Circle and bounding-box areas for position filters
//   - Epoch day and epoch millisecond conversions
package utils
