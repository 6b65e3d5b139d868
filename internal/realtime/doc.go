// Package realtime fans state-change events out to every open notification
// connection.
//
// A Registry owns the set of live connections. The Endpoint upgrades each
// client to a WebSocket, registers it for as long as it stays open and
// deregisters it when the socket closes, errors or stops answering pings. The
// Broadcaster serializes an Event once, sends it to a snapshot of the registry
// and evicts any connection whose send fails or exceeds the send timeout, so a
// dead or stalled client never blocks delivery to the others.
//
// Delivery is best effort. Nothing is persisted and clients that miss an event
// are expected to reload state after reconnecting.
package realtime
