// Package api serves the interactive surface used by `stemsplit serve`.
//
// Routes:
//
//	POST /api/jobs     start a split ({input, output_dir, batch}); 202 or 409 when busy
//	GET  /api/status   controller status and latest progress message
//	GET  /api/history  recent jobs when the history store is enabled
//	GET  /api/models   separation model catalogue
//	GET  /api/events   websocket stream of progress events
package api
