// Package server exposes the REST API and mounts the websocket
// channel.
//
// # Routes
//
//	GET    /api/health                         liveness probe
//	GET    /api/conversations                  list conversation metadata
//	POST   /api/conversations                  create an empty conversation
//	GET    /api/conversations/{id}             full conversation with messages
//	PATCH  /api/conversations/{id}             rename (title required)
//	DELETE /api/conversations/{id}             remove conversation
//	GET    /api/conversations/{id}/transcript  rendered HTML transcript
//	GET    /api/fs/home                        home directory path
//	GET    /api/fs/cwd                         working directory path
//	GET    /api/fs/list?path=                  directory listing, dirs first
//	GET    /ws                                 client channel
//
// The server is meant to bind to localhost only. CORS allows all
// origins because the browser extension runs inside arbitrary pages;
// the loopback bind is the actual access control.
//
// Run serves until its context is canceled, then drains in-flight
// requests with a five second grace window.
package server
