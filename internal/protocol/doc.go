// Package protocol holds the STOMP 1.2 wire helpers shared by the client
// transport and the development broker.
//
// Each WebSocket text message carries zero or more STOMP frames. A message
// consisting only of end-of-line characters is a heart-beat.
//
// This package is internal and should not be imported by external code.
package protocol
