// Package protocol defines the JSON envelope exchanged with a session server.
//
// Every frame is a single JSON object carrying a "type" discriminator:
//   - Client -> Server: "auth", "ping", and app-defined types ("chat",
//     "roll", "state").
//   - Server -> Client: "auth_success", "auth_error", "pong",
//     "participant_joined", "participant_left", and the same app-defined
//     types echoed to the table.
//
// The connection layer treats app-defined payloads as opaque; only the
// envelope type is inspected for routing.
package protocol
