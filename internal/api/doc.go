// Package api implements the session directory REST client. The directory
// resolves short invite codes into session metadata, including the WebSocket
// endpoint the companion should connect to.
package api
