// Package server exposes the HTTP surface: overlay and index pages,
// the operational stats API, the pre-join live check, health probes and
// the centrifuge websocket endpoint.
package server
