// Package aistrack wires the vessel tracking service together: it opens the
// configured stores, starts the tracker and the report sources, and serves
// the HTTP query API and the live update stream.
package aistrack
