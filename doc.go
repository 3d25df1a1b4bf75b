// Package main provides the entry point of boxwatch, a tracker for shared storage boxes.
// The start command runs the fiber based REST API and the telemetry websocket on top of
// gorm; the simulate command runs a client that mirrors the server state and streams
// synthetic sensor readings.
package main
