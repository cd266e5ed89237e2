// Package connection implements the persistent-connection resilience layer.
//
// The Manager:
//   - Owns a single WebSocket transport to the session server
//   - Authenticates with a token handshake immediately after transport open
//   - Queues outbound frames while disconnected and flushes them in order
//   - Recovers from transport failures with exponential backoff
//   - Detects silently-dead connections via ping/pong heartbeat
package connection
