// Package testutil provides in-memory fakes for testing the chat client.
//
// FakeDialer and FakeSession stand in for the STOMP-over-WebSocket
// transport; ManualClock replaces the reconnect timer so tests decide when a
// scheduled retry fires.
//
// This package is internal and should not be imported by external code.
package testutil
