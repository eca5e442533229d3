// Package session backs the interactive surface: a Controller that runs one
// split at a time in the background and a Hub that buffers progress events
// for status polling and the websocket stream.
package session
