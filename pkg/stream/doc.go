// Package stream serves the long-lived notification event stream.
//
// A client opens GET /notifications/stream with a bearer token in the
// Authorization header or the token query parameter (EventSource cannot set
// headers). After the token is verified the connection is registered in the
// registry and the server writes a ": connected" comment followed by a
// connection acknowledgement frame. From then on every frame the dispatcher
// writes to the session's Channel is forwarded to the client, interleaved
// with periodic heartbeat comments. A rejected handshake gets a bare 401.
//
// Each session walks a small state machine:
//
//	connecting --request--> authenticating --authenticated--> registered --disconnected--> closed
//	                              |
//	                              +--rejected--> closed
package stream
