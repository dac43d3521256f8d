// Package requestid tags every HTTP request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it in the response. The
// LoggerExtractor hook makes every log record written with that context
// carry request_id, so a stream session or a bulk send can be traced
// through the logs.
package requestid
